package pyramid

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := ioError("write tile", "/tmp/x/0/0/0.png", os.ErrPermission)

	assert.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, os.ErrPermission, "wrapped cause stays reachable")

	wrapped := fmt.Errorf("run: %w", err)
	assert.ErrorIs(t, wrapped, ErrIO)
	assert.Equal(t, IOError, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: DecodeError, Op: "decode source", Path: "map.png", Err: errors.New("bad header")}
	assert.Equal(t, "decode source: decode error map.png: bad header", err.Error())
}

func TestKindOf_Foreign(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(0), KindOf(nil))
}
