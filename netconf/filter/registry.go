// Package filter holds the catalog of named subtree filters that callers may apply to
// get-config requests. Callers refer to filters by name only; every fragment is validated
// when it is registered, so malformed filters never reach the wire.
package filter

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/damianoneill/ncclient/netconf/common/codec"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownFilterName is returned when a name does not match any registered filter.
	ErrUnknownFilterName = errors.New("netconf: unknown filter name")

	// ErrInvalidFilterDefinition is returned when a filter name or fragment is rejected.
	ErrInvalidFilterDefinition = errors.New("netconf: invalid filter definition")
)

// Well known namespaces of the default catalog.
const (
	InterfacesNS = "urn:ietf:params:xml:ns:yang:ietf-interfaces"
	SystemNS     = "urn:ietf:params:xml:ns:yang:ietf-system"
	NativeNS     = "http://cisco.com/ns/yang/Cisco-IOS-XE-native"
	RoutingNS    = "urn:ietf:params:xml:ns:yang:ietf-routing"
)

// DefaultFilters defines the catalog seeded by NewDefaultRegistry, in registration order.
var DefaultFilters = []struct {
	Name     string
	Fragment string
}{
	{"interfaces", `<interfaces xmlns="` + InterfacesNS + `"/>`},
	{"system", `<system xmlns="` + SystemNS + `"/>`},
	{"native", `<native xmlns="` + NativeNS + `"/>`},
	{"routing", `<routing xmlns="` + RoutingNS + `"/>`},
}

// Spec is a resolved filter: the registered name and the subtree fragment it expands to.
type Spec struct {
	Name     string
	Fragment *codec.Element
}

// XML delivers the canonical xml of the fragment.
func (s *Spec) XML() string {
	b, err := codec.SerializeElement(s.Fragment)
	if err != nil {
		// Fragments are validated on registration.
		return ""
	}
	return string(b)
}

// Registry is a named catalog of subtree filters. It is safe for concurrent use; lookups
// always see the latest registration.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]*codec.Element
}

// NewRegistry delivers an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*codec.Element)}
}

// NewDefaultRegistry delivers a registry seeded with DefaultFilters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range DefaultFilters {
		if err := r.Register(f.Name, f.Fragment); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or replaces the filter called name. The fragment must be a single
// well-formed element, otherwise the call fails with ErrInvalidFilterDefinition and the
// registry is unchanged. Names are matched case-insensitively.
func (r *Registry) Register(name, fragment string) error {
	key := normalize(name)
	if key == "" {
		return errors.Wrap(ErrInvalidFilterDefinition, "filter name must not be empty")
	}
	doc, err := codec.Parse([]byte(fragment))
	if err != nil {
		return errors.Wrapf(ErrInvalidFilterDefinition, "filter %q: %v", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; !exists {
		r.names = append(r.names, key)
	}
	r.entries[key] = doc.Root
	return nil
}

// Build resolves name to a filter spec. An unregistered name fails with ErrUnknownFilterName;
// there is no partial or fuzzy matching.
func (r *Registry) Build(name string) (*Spec, error) {
	key := normalize(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	fragment, ok := r.entries[key]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFilterName, "%q (known: %s)", name, strings.Join(r.names, ", "))
	}
	return &Spec{Name: key, Fragment: fragment.Clone()}, nil
}

// Names delivers the registered filter names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[normalize(name)]
	return ok
}

// LoadYAML registers every entry of a YAML mapping of filter name to fragment. Entries are
// registered in name order; nothing is registered unless every fragment is valid.
func (r *Registry) LoadYAML(in io.Reader) error {
	var catalog map[string]string
	if err := yaml.NewDecoder(in).Decode(&catalog); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrap(ErrInvalidFilterDefinition, err.Error())
	}
	return r.RegisterAll(catalog)
}

// RegisterAll validates every fragment of catalog, then registers them in name order.
func (r *Registry) RegisterAll(catalog map[string]string) error {
	names := make([]string, 0, len(catalog))
	for name, fragment := range catalog {
		if normalize(name) == "" {
			return errors.Wrap(ErrInvalidFilterDefinition, "filter name must not be empty")
		}
		if _, err := codec.Parse([]byte(fragment)); err != nil {
			return errors.Wrapf(ErrInvalidFilterDefinition, "filter %q: %v", name, err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Register(name, catalog[name]); err != nil {
			return err
		}
	}
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
