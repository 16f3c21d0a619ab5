package schema

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lightmesh/gatekeeper/core"
	"github.com/lightmesh/gatekeeper/status"
)

var (
	// ErrUnknownService is returned when no schema is registered for the
	// requested service id.
	ErrUnknownService = errors.New("no schema registered for service")

	// ErrInvalidPayload is returned when the payload cannot be converted to
	// the JSON data model.
	ErrInvalidPayload = errors.New("payload is not representable as JSON")
)

// Violation is one failed schema rule.
type Violation struct {
	// Path is the JSON pointer of the offending instance ("" is the root).
	Path string `json:"path"`
	// Keyword is the schema keyword that failed, e.g. "type" or "required".
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

// Outcome is the result of validating one payload. No violations means
// valid.
type Outcome struct {
	Violations []Violation
}

// Valid reports whether the payload satisfied the schema.
func (o Outcome) Valid() bool {
	return len(o.Violations) == 0
}

// Validator checks payloads against the schema registered for a service.
// It is stateless between calls and safe for concurrent use.
type Validator struct {
	registry *Registry
	catalog  *status.Catalog
	logger   core.Logger
	marshal  func(any) ([]byte, error)
}

// NewValidator returns a Validator over registry.
func NewValidator(registry *Registry, opts ...Option) (*Validator, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}

	v := &Validator{
		registry: registry,
		catalog:  status.Default(),
		logger:   core.NopLogger(),
		marshal:  json.Marshal,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return v, nil
}

// Validate checks payload against the schema of serviceID and collects every
// violation, ordered by path, keyword and message. A service without a
// schema is ErrUnknownService.
func (v *Validator) Validate(serviceID string, payload any) (Outcome, error) {
	svc, ok := v.registry.Lookup(serviceID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownService, serviceID)
	}

	instance, err := toJSONValue(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	err = svc.compiled.Validate(instance)
	if err == nil {
		return Outcome{}, nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return Outcome{}, fmt.Errorf("could not validate payload of service %s: %w", serviceID, err)
	}

	var violations []Violation
	collectLeaves(svc, instance, ve, &violations)
	slices.SortFunc(violations, func(a, b Violation) int {
		return cmp.Or(
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Keyword, b.Keyword),
			cmp.Compare(a.Message, b.Message),
		)
	})

	return Outcome{Violations: violations}, nil
}

// Check is Validate rendered as a terminal status. It returns nil when the
// payload is valid.
func (v *Validator) Check(serviceID string, payload any) *status.Status {
	outcome, err := v.Validate(serviceID, payload)
	switch {
	case errors.Is(err, ErrUnknownService):
		v.logger.Error("no schema registered, rejecting request", "service_id", serviceID)
		st := v.catalog.Format(status.CodeUnknownService, serviceID)
		return &st
	case err != nil:
		v.logger.Warn("payload could not be validated", "service_id", serviceID, "error", err)
		st := v.catalog.Format(status.CodeInvalidRequestBody, err.Error())
		return &st
	case outcome.Valid():
		return nil
	}

	detail, err := v.marshal(outcome.Violations)
	if err != nil {
		v.logger.Error("could not serialize schema violations", "service_id", serviceID, "error", err)
		detail = []byte(fmt.Sprintf("(%d violations)", len(outcome.Violations)))
	}

	v.logger.Debug("payload failed schema validation", "service_id", serviceID, "violations", len(outcome.Violations))
	st := v.catalog.Format(status.CodeValidationError, string(detail))
	return &st
}

func collectLeaves(svc *ServiceSchema, instance any, ve *jsonschema.ValidationError, out *[]Violation) {
	if len(ve.Causes) == 0 {
		keyword := keywordOf(ve.KeywordLocation)
		if keyword == "required" {
			if missing := missingProperties(svc, instance, ve); len(missing) > 0 {
				*out = append(*out, missing...)
				return
			}
		}
		*out = append(*out, Violation{
			Path:    ve.InstanceLocation,
			Keyword: keyword,
			Message: ve.Message,
		})
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(svc, instance, cause, out)
	}
}

// missingProperties splits a failed required keyword into one violation per
// absent property, located at the property's own path. It returns nil when
// the keyword or the instance cannot be resolved.
func missingProperties(svc *ServiceSchema, instance any, ve *jsonschema.ValidationError) []Violation {
	_, fragment, ok := strings.Cut(ve.AbsoluteKeywordLocation, "#")
	if !ok {
		return nil
	}
	if unescaped, err := url.PathUnescape(fragment); err == nil {
		fragment = unescaped
	}

	required, ok := resolvePointer(svc.tree, fragment)
	if !ok {
		return nil
	}
	names, ok := required.([]any)
	if !ok {
		return nil
	}
	value, ok := resolvePointer(instance, ve.InstanceLocation)
	if !ok {
		return nil
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, n := range names {
		name, ok := n.(string)
		if !ok {
			continue
		}
		if _, present := object[name]; present {
			continue
		}
		violations = append(violations, Violation{
			Path:    ve.InstanceLocation + "/" + escapeToken(name),
			Keyword: "required",
			Message: fmt.Sprintf("missing property %q", name),
		})
	}
	return violations
}

func resolvePointer(doc any, pointer string) (any, bool) {
	if pointer == "" {
		return doc, true
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, false
	}
	current := doc
	for _, token := range strings.Split(pointer[1:], "/") {
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

func escapeToken(token string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(token)
}

// keywordOf returns the last segment of a keyword location such as
// "/properties/name/type".
func keywordOf(location string) string {
	if i := strings.LastIndexByte(location, '/'); i >= 0 {
		return location[i+1:]
	}
	return location
}

// toJSONValue converts payload to the plain JSON data model the compiled
// schema validates: maps, slices, strings, bools, nil and json.Number.
func toJSONValue(payload any) (any, error) {
	var raw []byte
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return nil, err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return value, nil
}
