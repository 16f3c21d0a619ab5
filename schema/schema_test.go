package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightmesh/gatekeeper/status"
)

const (
	addPet  = "petstore/pets/addPet/0.1.0"
	getPets = "petstore/pets/getPets/0.1.0"
)

const specYAML = `
petstore/pets/addPet/0.1.0:
  scope: pets.w
  schema:
    type: object
    required: [id, name]
    properties:
      id:
        type: integer
      name:
        type: string
      tag:
        type: string
        maxLength: 5
      email:
        type: string
        format: email
petstore/pets/getPets/0.1.0:
  scope: pets.r
  schema:
    type: object
    properties:
      name:
        type: string
`

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := LoadRegistry(strings.NewReader(specYAML))
	require.NoError(t, err)
	return r
}

type recordingLogger struct {
	errors []string
	warns  []string
}

func (l *recordingLogger) Debug(string, ...any)       {}
func (l *recordingLogger) Info(string, ...any)        {}
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func TestRegistry(t *testing.T) {
	r := loadTestRegistry(t)

	assert.Equal(t, []string{addPet, getPets}, r.Services())
	assert.Equal(t, 2, r.Len())

	svc, ok := r.Lookup(addPet)
	require.True(t, ok)
	assert.Equal(t, addPet, svc.ServiceID)
	assert.Equal(t, "pets.w", svc.Scope)

	_, ok = r.Lookup("petstore/pets/deletePet/0.1.0")
	assert.False(t, ok)
}

func TestLoadRegistry_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			input:   "svc: [unclosed",
			wantErr: "could not decode schema file",
		},
		{
			name:    "missing schema",
			input:   "svc/a/b/1:\n  scope: x\n",
			wantErr: "service svc/a/b/1 has no schema",
		},
		{
			name:    "schema that does not compile",
			input:   "svc/a/b/1:\n  schema:\n    type: 12\n",
			wantErr: "could not compile schema of service svc/a/b/1",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := LoadRegistry(strings.NewReader(testCase.input))
			assert.ErrorContains(t, err, testCase.wantErr)
		})
	}

	t.Run("empty file is an empty registry", func(t *testing.T) {
		r, err := LoadRegistry(strings.NewReader(""))
		require.NoError(t, err)
		assert.Zero(t, r.Len())
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yml")
	require.NoError(t, os.WriteFile(path, []byte(specYAML), 0o600))

	r, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorContains(t, err, "could not open schema file")
}

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator(loadTestRegistry(t))
	require.NoError(t, err)

	testCases := []struct {
		name      string
		serviceID string
		payload   any
		want      []Violation
	}{
		{
			name:      "valid payload",
			serviceID: addPet,
			payload:   map[string]any{"id": 1, "name": "doggie"},
		},
		{
			name:      "wrong type is reported at its path",
			serviceID: getPets,
			payload:   map[string]any{"name": 123},
			want: []Violation{
				{Path: "/name", Keyword: "type"},
			},
		},
		{
			name:      "every violation is collected",
			serviceID: addPet,
			payload:   map[string]any{"name": 123, "tag": "too-long-tag", "email": "not-an-email"},
			want: []Violation{
				{Path: "/email", Keyword: "format"},
				{Path: "/id", Keyword: "required"},
				{Path: "/name", Keyword: "type"},
				{Path: "/tag", Keyword: "maxLength"},
			},
		},
		{
			name:      "every missing property is its own violation",
			serviceID: addPet,
			payload:   map[string]any{},
			want: []Violation{
				{Path: "/id", Keyword: "required"},
				{Path: "/name", Keyword: "required"},
			},
		},
		{
			name:      "raw JSON payload",
			serviceID: getPets,
			payload:   json.RawMessage(`{"name":"rex"}`),
		},
		{
			name:      "struct payload",
			serviceID: addPet,
			payload: struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			}{ID: 7, Name: "rex"},
		},
		{
			name:      "large integers keep their precision",
			serviceID: addPet,
			payload:   json.RawMessage(`{"id":9007199254740993,"name":"rex"}`),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			outcome, err := v.Validate(testCase.serviceID, testCase.payload)
			require.NoError(t, err)

			assert.Equal(t, len(testCase.want) == 0, outcome.Valid())
			got := make([]Violation, 0, len(outcome.Violations))
			for _, violation := range outcome.Violations {
				assert.NotEmpty(t, violation.Message)
				got = append(got, Violation{Path: violation.Path, Keyword: violation.Keyword})
			}
			want := testCase.want
			if want == nil {
				want = []Violation{}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("violations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidator_ValidateIsIdempotent(t *testing.T) {
	v, err := NewValidator(loadTestRegistry(t))
	require.NoError(t, err)

	payload := map[string]any{"name": true, "tag": "abcdefgh"}
	first, err := v.Validate(addPet, payload)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := v.Validate(addPet, payload)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("outcome changed on run %d (-first +again):\n%s", i, diff)
		}
	}
}

func TestValidator_UnknownService(t *testing.T) {
	v, err := NewValidator(loadTestRegistry(t))
	require.NoError(t, err)

	_, err = v.Validate("petstore/pets/deletePet/0.1.0", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestValidator_Check(t *testing.T) {
	t.Run("valid payload produces no status", func(t *testing.T) {
		v, err := NewValidator(loadTestRegistry(t))
		require.NoError(t, err)
		assert.Nil(t, v.Check(addPet, map[string]any{"id": 1, "name": "rex"}))
	})

	t.Run("violations produce ERR11004 with the serialized outcome", func(t *testing.T) {
		v, err := NewValidator(loadTestRegistry(t))
		require.NoError(t, err)

		st := v.Check(getPets, map[string]any{"name": 123})
		require.NotNil(t, st)
		assert.Equal(t, 400, st.StatusCode)
		assert.Equal(t, status.CodeValidationError, st.Code)
		assert.True(t, strings.HasPrefix(st.String(), "ERR11004 Schema validation error ["))

		detail := strings.TrimPrefix(st.Description, "Schema validation error ")
		var violations []Violation
		require.NoError(t, json.Unmarshal([]byte(detail), &violations))
		require.Len(t, violations, 1)
		assert.Equal(t, "/name", violations[0].Path)
	})

	t.Run("unknown service fails closed", func(t *testing.T) {
		logger := &recordingLogger{}
		v, err := NewValidator(loadTestRegistry(t), WithLogger(logger))
		require.NoError(t, err)

		st := v.Check("petstore/pets/deletePet/0.1.0", map[string]any{})
		require.NotNil(t, st)
		assert.Equal(t, status.CodeUnknownService, st.Code)
		assert.Equal(t, "ERR11201 No schema is registered for service petstore/pets/deletePet/0.1.0", st.String())
		assert.Len(t, logger.errors, 1)
	})

	t.Run("serialization failure still rejects", func(t *testing.T) {
		logger := &recordingLogger{}
		v, err := NewValidator(loadTestRegistry(t),
			WithLogger(logger),
			WithEncoder(func(any) ([]byte, error) { return nil, errors.New("encoder broke") }),
		)
		require.NoError(t, err)

		st := v.Check(getPets, map[string]any{"name": 123})
		require.NotNil(t, st)
		assert.Equal(t, status.CodeValidationError, st.Code)
		assert.Equal(t, "ERR11004 Schema validation error (1 violations)", st.String())
		assert.Len(t, logger.errors, 1)
	})

	t.Run("unrepresentable payload is a bad request", func(t *testing.T) {
		logger := &recordingLogger{}
		v, err := NewValidator(loadTestRegistry(t), WithLogger(logger))
		require.NoError(t, err)

		st := v.Check(getPets, map[string]any{"name": make(chan int)})
		require.NotNil(t, st)
		assert.Equal(t, status.CodeInvalidRequestBody, st.Code)
		assert.Len(t, logger.warns, 1)
	})
}

func TestNewValidator(t *testing.T) {
	_, err := NewValidator(nil)
	assert.EqualError(t, err, "registry cannot be nil")

	r := loadTestRegistry(t)
	_, err = NewValidator(r, WithCatalog(nil))
	assert.EqualError(t, err, "invalid option: catalog cannot be nil")

	_, err = NewValidator(r, WithLogger(nil))
	assert.EqualError(t, err, "invalid option: logger cannot be nil")

	_, err = NewValidator(r, WithEncoder(nil))
	assert.EqualError(t, err, "invalid option: encoder cannot be nil")
}

func TestValidator_NestedRequired(t *testing.T) {
	r, err := NewRegistry(map[string]Definition{
		addPet: {Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"owner": map[string]any{
					"type":     "object",
					"required": []any{"email", "a/b"},
				},
			},
		}},
	})
	require.NoError(t, err)
	v, err := NewValidator(r)
	require.NoError(t, err)

	outcome, err := v.Validate(addPet, map[string]any{"owner": map[string]any{}})
	require.NoError(t, err)

	assert.Equal(t, []Violation{
		{Path: "/owner/a~1b", Keyword: "required", Message: `missing property "a/b"`},
		{Path: "/owner/email", Keyword: "required", Message: `missing property "email"`},
	}, outcome.Violations)
}
