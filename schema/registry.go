package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Definition is the on-disk form of one service entry.
type Definition struct {
	Schema any    `yaml:"schema" json:"schema"`
	Scope  string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// ServiceSchema is a compiled schema bound to a service id. It is read-only
// after the registry is built.
type ServiceSchema struct {
	ServiceID string
	// Document is the schema as it was loaded.
	Document any
	// Scope is the declared scope of the service. It is carried for callers
	// and not enforced here.
	Scope string

	compiled *jsonschema.Schema
	// tree is Document in the JSON data model, for resolving keyword
	// locations.
	tree any
}

// Registry holds every ServiceSchema keyed by service id. It is immutable
// after construction and safe for concurrent use.
type Registry struct {
	services map[string]*ServiceSchema
}

// NewRegistry compiles every definition. A schema that does not compile
// fails the whole registry.
func NewRegistry(defs map[string]Definition) (*Registry, error) {
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true

	r := &Registry{services: make(map[string]*ServiceSchema, len(defs))}
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("schema %d has an empty service id", i)
		}
		def := defs[id]
		if def.Schema == nil {
			return nil, fmt.Errorf("service %s has no schema", id)
		}

		doc, err := json.Marshal(def.Schema)
		if err != nil {
			return nil, fmt.Errorf("could not encode schema of service %s: %w", id, err)
		}

		resource := fmt.Sprintf("mem://gatekeeper/%d.json", i)
		if err = compiler.AddResource(resource, bytes.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("could not add schema of service %s: %w", id, err)
		}
		compiled, err := compiler.Compile(resource)
		if err != nil {
			return nil, fmt.Errorf("could not compile schema of service %s: %w", id, err)
		}
		var tree any
		if err = json.Unmarshal(doc, &tree); err != nil {
			return nil, fmt.Errorf("could not decode schema of service %s: %w", id, err)
		}

		r.services[id] = &ServiceSchema{
			ServiceID: id,
			Document:  def.Schema,
			Scope:     def.Scope,
			compiled:  compiled,
			tree:      tree,
		}
	}

	return r, nil
}

// LoadRegistry reads a YAML (or JSON) document keyed by service id:
//
//	petstore/pets/addPet/0.1.0:
//	  scope: pets.w
//	  schema:
//	    type: object
//	    required: [name]
//	    properties:
//	      name: {type: string}
func LoadRegistry(r io.Reader) (*Registry, error) {
	var defs map[string]Definition
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not decode schema file: %w", err)
	}
	return NewRegistry(defs)
}

// LoadFile is LoadRegistry on the file at path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open schema file: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

// Lookup returns the schema registered for serviceID.
func (r *Registry) Lookup(serviceID string) (*ServiceSchema, bool) {
	s, ok := r.services[serviceID]
	return s, ok
}

// Services returns the registered service ids in sorted order.
func (r *Registry) Services() []string {
	ids := make([]string, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.services)
}
