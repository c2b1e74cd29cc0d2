package importing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	cases := []struct {
		in   string
		want EntityType
		ok   bool
	}{
		{"users", EntityUserProfile, true},
		{"user", EntityUserProfile, true},
		{"user_profiles", EntityUserProfile, true},
		{" USERS ", EntityUserProfile, true},
		{"Area", EntityArea, true},
		{"objective", EntityObjective, true},
		{"initiatives", EntityInitiative, true},
		{"activity", EntityActivity, true},
		{"objective_initiative_links", EntityLink, true},
		{"widgets", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseEntityType(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestSuggestEntityType(t *testing.T) {
	assert.Equal(t, "users", SuggestEntityType("usrs"))
	assert.Equal(t, "objectives", SuggestEntityType("objectve"))
	assert.Empty(t, SuggestEntityType("widgets"))
	assert.Empty(t, SuggestEntityType(""))
}

func TestAllEntityTypesHaveSchemas(t *testing.T) {
	types := AllEntityTypes()
	require.Len(t, types, 6)
	for _, et := range types {
		assert.NotNil(t, SchemaFor(et), "schema for %s", et)
	}
}
