package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("SPENDMAIL_DIR", "/srv/spendmail")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: "/home/tester"},
		{in: "~/token.json", want: "/home/tester/token.json"},
		{in: "$SPENDMAIL_DIR/db.sqlite", want: "/srv/spendmail/db.sqlite"},
		{in: "/abs/path", want: "/abs/path"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}
