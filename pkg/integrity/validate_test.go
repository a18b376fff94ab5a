package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var heroSchema = Object(
	Required("name", String()),
	Required("role", String("tank", "damage", "support")),
	Optional("portrait", String()),
	Nullable("hitpoints", Object(
		Required("health", Int()),
		Required("total", Int()),
	)),
	Required("abilities", ArrayOf(Object(
		Required("name", String()),
		Optional("icon", String()),
	))),
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		schema  Schema
		wantErr bool
		wantIn  string
	}{
		{
			name:   "valid hero",
			raw:    `{"name":"Ana","role":"support","hitpoints":{"health":200,"total":200},"abilities":[{"name":"Biotic Rifle"}]}`,
			schema: heroSchema,
		},
		{
			name:   "nullable hitpoints and missing optional portrait",
			raw:    `{"name":"Ana","role":"support","hitpoints":null,"abilities":[]}`,
			schema: heroSchema,
		},
		{
			name:    "missing required field",
			raw:     `{"role":"support","hitpoints":null,"abilities":[]}`,
			schema:  heroSchema,
			wantErr: true,
			wantIn:  "$.name",
		},
		{
			name:    "nullable field must still be present",
			raw:     `{"name":"Ana","role":"support","abilities":[]}`,
			schema:  heroSchema,
			wantErr: true,
			wantIn:  "$.hitpoints",
		},
		{
			name:    "wrong type",
			raw:     `{"name":42,"role":"support","hitpoints":null,"abilities":[]}`,
			schema:  heroSchema,
			wantErr: true,
			wantIn:  "want string",
		},
		{
			name:    "enum violation",
			raw:     `{"name":"Ana","role":"healer","hitpoints":null,"abilities":[]}`,
			schema:  heroSchema,
			wantErr: true,
			wantIn:  "$.role",
		},
		{
			name:    "one bad element fails the sequence",
			raw:     `{"name":"Ana","role":"support","hitpoints":null,"abilities":[{"name":"a"},{"icon":"x"}]}`,
			schema:  heroSchema,
			wantErr: true,
			wantIn:  "$.abilities[1].name",
		},
		{
			name:    "unexpected null in required field",
			raw:     `{"name":null,"role":"support","hitpoints":null,"abilities":[]}`,
			schema:  heroSchema,
			wantErr: true,
			wantIn:  "unexpected null",
		},
		{
			name:    "float where integer expected",
			raw:     `{"name":"Ana","role":"support","hitpoints":{"health":200.5,"total":200},"abilities":[]}`,
			schema:  heroSchema,
			wantErr: true,
			wantIn:  "$.hitpoints.health",
		},
		{
			name:   "map of objects",
			raw:    `{"ana":{"hitpoints":{"health":200,"total":200}},"reinhardt":{"hitpoints":{"health":475,"total":675}}}`,
			schema: MapOf(Object(Required("hitpoints", Object(Required("health", Int()), Required("total", Int()))))),
		},
		{
			name:    "map with a bad member",
			raw:     `{"ana":{"hitpoints":"lots"}}`,
			schema:  MapOf(Object(Required("hitpoints", Object()))),
			wantErr: true,
			wantIn:  "$.ana.hitpoints",
		},
		{
			name:    "array expected",
			raw:     `{"key":"tank"}`,
			schema:  ArrayOf(Object(Required("key", String()))),
			wantErr: true,
			wantIn:  "want array",
		},
		{
			name:    "invalid json",
			raw:     `{"key":`,
			schema:  Any(),
			wantErr: true,
			wantIn:  "not valid JSON",
		},
		{
			name:    "empty input",
			raw:     ``,
			schema:  Any(),
			wantErr: true,
		},
		{
			name:   "bool and number",
			raw:    `{"flag":true,"ratio":0.5}`,
			schema: Object(Required("flag", Bool()), Required("ratio", Number())),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.raw), tt.schema)
			if !tt.wantErr {
				assert.NoError(t, err)
				assert.True(t, Valid([]byte(tt.raw), tt.schema))
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIntegrity)
			if tt.wantIn != "" {
				assert.Contains(t, err.Error(), tt.wantIn)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "integer", KindInt.String())
	assert.Equal(t, "any", KindAny.String())
}
