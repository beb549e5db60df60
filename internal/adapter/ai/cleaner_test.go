package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `  {"score":7,"feedback":"ok"} `, `{"score":7,"feedback":"ok"}`},
		{"json fence", "```json\n{\"score\":7}\n```", `{"score":7}`},
		{"bare fence", "```\n{\"score\":3}\n```", `{"score":3}`},
		{"prose around fence", "Here you go:\n```json\n{\"score\":9}\n```\nThanks", `{"score":9}`},
		{"no json", "I cannot grade this.", "I cannot grade this."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanResponse(tt.in))
		})
	}
}
