package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/cantas/pkg/board"
)

func TestCriteriaMatches(t *testing.T) {
	msg := &board.Message{Channel: "/card/c1:update", Room: "board:b1", Origin: "conn-1"}

	testCases := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"no filters", Criteria{}, true},
		{"channel glob", Criteria{ChannelGlob: "/card/*"}, true},
		{"channel glob miss", Criteria{ChannelGlob: "/board/*"}, false},
		{"create channels only", Criteria{ChannelGlob: "/*:create"}, false},
		{"room", Criteria{Room: "board:b1"}, true},
		{"other room", Criteria{Room: "board:b2"}, false},
		{"origin", Criteria{Origin: "conn-1"}, true},
		{"other origin", Criteria{Origin: "conn-2"}, false},
		{"all criteria", Criteria{ChannelGlob: "/card/*", Room: "board:b1", Origin: "conn-1"}, true},
		{"malformed glob", Criteria{ChannelGlob: "["}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.criteria.Matches(msg))
		})
	}
}

func TestCriteriaHasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{Room: "board:b1"}).HasFilters())
}

func TestCriteriaValidate(t *testing.T) {
	assert.NoError(t, (&Criteria{}).Validate())
	assert.NoError(t, (&Criteria{ChannelGlob: "/card*"}).Validate())
	assert.Error(t, (&Criteria{ChannelGlob: "["}).Validate())
}
