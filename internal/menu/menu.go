// Package menu implements the interactive menu of the console tool, dispatching each
// choice to the netconf operations of a connected device.
package menu

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/common/codec"
	"github.com/damianoneill/ncclient/netconf/ops"
	"github.com/pkg/errors"
)

// QuitKey ends the menu loop.
const QuitKey = "q"

// Indent is used when displaying and saving configuration.
const Indent = "  "

// Action is a menu choice.
type Action interface {
	// Description is the text shown for the choice.
	Description() string
	// Run performs the choice, writing its results to the menu output.
	Run(m *Menu) error
}

// Item binds an Action to the key that selects it.
type Item struct {
	Key    string
	Action Action
}

// Menu reads choices from an input and runs the selected action against a device.
type Menu struct {
	ops       ops.Operations
	in        *bufio.Scanner
	out       io.Writer
	backupDir string
	now       func() time.Time
	items     []Item
}

// Option configures a Menu.
type Option func(*Menu)

// WithBackupDir sets the directory in which saved configuration is written.
func WithBackupDir(dir string) Option {
	return func(m *Menu) {
		m.backupDir = dir
	}
}

// WithClock replaces the clock used to name saved configuration files.
func WithClock(now func() time.Time) Option {
	return func(m *Menu) {
		m.now = now
	}
}

// New delivers a menu offering the standard actions.
func New(o ops.Operations, in io.Reader, out io.Writer, opts ...Option) *Menu {
	m := &Menu{
		ops:       o,
		in:        bufio.NewScanner(in),
		out:       out,
		backupDir: ".",
		now:       time.Now,
		items: []Item{
			{Key: "1", Action: ListCapabilities{}},
			{Key: "2", Action: GetConfig{}},
			{Key: "3", Action: GetFilteredConfig{}},
			{Key: "4", Action: SaveConfig{}},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Items delivers the menu choices in display order.
func (m *Menu) Items() []Item {
	return m.items
}

// Run displays the menu and runs selected actions until the quit key is entered or the
// input is exhausted. Action failures are reported on the output and do not end the loop.
func (m *Menu) Run() error {
	for {
		m.display()
		answer, ok := m.prompt("Choice: ")
		if !ok {
			return m.in.Err()
		}
		answer = strings.ToLower(answer)
		if answer == QuitKey {
			m.printf("Exiting...\n")
			return nil
		}
		item, found := m.lookup(answer)
		if !found {
			m.printf("Invalid choice %q\n", answer)
			continue
		}
		if err := item.Action.Run(m); err != nil {
			m.printf("Error: %s\n", Describe(err))
			if common.IsSessionFatal(err) {
				return err
			}
		}
	}
}

func (m *Menu) display() {
	m.printf("\n")
	for _, item := range m.items {
		m.printf("%s. %s\n", item.Key, item.Action.Description())
	}
	m.printf("%s - Quit\n", QuitKey)
}

func (m *Menu) lookup(key string) (Item, bool) {
	for _, item := range m.items {
		if item.Key == key {
			return item, true
		}
	}
	return Item{}, false
}

func (m *Menu) prompt(text string) (string, bool) {
	m.printf("%s", text)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(m.out, format, args...)
}

func (m *Menu) showDocument(doc *codec.Document) error {
	text, err := codec.PrettyPrint(doc, Indent)
	if err != nil {
		return err
	}
	m.printf("%s\n", text)
	return nil
}

// ListCapabilities prints the capabilities advertised by the device.
type ListCapabilities struct{}

// Description implements Action.
func (ListCapabilities) Description() string { return "List server capabilities" }

// Run implements Action.
func (ListCapabilities) Run(m *Menu) error {
	caps, err := m.ops.ListCapabilities()
	if err != nil {
		return err
	}
	for _, c := range caps {
		m.printf("%s\n", c)
	}
	return nil
}

// GetConfig prints the running configuration.
type GetConfig struct{}

// Description implements Action.
func (GetConfig) Description() string { return "Show running configuration" }

// Run implements Action.
func (GetConfig) Run(m *Menu) error {
	doc, err := m.ops.GetRunningConfig()
	if err != nil {
		return err
	}
	return m.showDocument(doc)
}

// GetFilteredConfig prompts for a filter name and prints the part of the running
// configuration it selects. Names are matched without regard to case.
type GetFilteredConfig struct{}

// Description implements Action.
func (GetFilteredConfig) Description() string { return "Show filtered running configuration" }

// Run implements Action.
func (GetFilteredConfig) Run(m *Menu) error {
	names := m.ops.FilterNames()
	name, ok := m.prompt(fmt.Sprintf("Filter (%s): ", strings.Join(names, ", ")))
	if !ok {
		return errors.Wrap(io.ErrUnexpectedEOF, "no filter name entered")
	}
	doc, err := m.ops.GetRunningConfigFiltered(strings.ToLower(name))
	if err != nil {
		return err
	}
	return m.showDocument(doc)
}

// SaveConfig writes the running configuration to a file named for the current date.
type SaveConfig struct{}

// Description implements Action.
func (SaveConfig) Description() string { return "Save running configuration" }

// Run implements Action.
func (SaveConfig) Run(m *Menu) error {
	doc, err := m.ops.GetRunningConfig()
	if err != nil {
		return err
	}
	text, err := codec.PrettyPrint(doc, Indent)
	if err != nil {
		return err
	}
	path := BackupPath(m.backupDir, m.now())
	if err = os.WriteFile(path, []byte(text+"\n"), 0o600); err != nil {
		return errors.Wrap(err, "failed to save configuration")
	}
	m.printf("Configuration saved to %s\n", path)
	return nil
}

// BackupPath delivers the path of the file holding configuration saved at t.
func BackupPath(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("backup_config_%s.xml", t.Format("20060102")))
}

// Describe renders err prefixed by the kind of failure it represents.
func Describe(err error) string {
	var rpcErrs *common.RPCErrors
	switch {
	case errors.As(err, &rpcErrs):
		return fmt.Sprintf("device rejected the request %v: %v", rpcErrs.Tags(), err)
	case errors.Is(err, ops.ErrNotConnected):
		return fmt.Sprintf("not connected: %v", err)
	case errors.Is(err, common.ErrUnknownFilterName):
		return fmt.Sprintf("unknown filter: %v", err)
	case errors.Is(err, common.ErrTimeout):
		return fmt.Sprintf("timed out: %v", err)
	case errors.Is(err, common.ErrMalformedDocument):
		return fmt.Sprintf("malformed reply: %v", err)
	case errors.Is(err, common.ErrEncoding):
		return fmt.Sprintf("encoding failed: %v", err)
	case errors.Is(err, common.ErrHandshakeFailed):
		return fmt.Sprintf("handshake failed: %v", err)
	case errors.Is(err, common.ErrFraming):
		return fmt.Sprintf("framing violated: %v", err)
	case errors.Is(err, common.ErrTransportClosed):
		return fmt.Sprintf("connection closed: %v", err)
	default:
		return err.Error()
	}
}
