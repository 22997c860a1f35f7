package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		want string
	}{
		{
			name: "full",
			err:  Wrap(CodeChecksumMismatch, "fetch", "BTCUSDT/klines/2023-01-01", stderrors.New("digest differs")),
			want: "fetch: BTCUSDT/klines/2023-01-01 [CHECKSUM_MISMATCH]: digest differs",
		},
		{
			name: "no unit",
			err:  &PipelineError{Code: CodeConfigInvalid, Op: "load", Err: stderrors.New("dest missing")},
			want: "load [CONFIG_INVALID]: dest missing",
		},
		{
			name: "no cause",
			err:  New(CodeArchiveCorrupt, "extract", "ETHUSDT.zip"),
			want: "extract: ETHUSDT.zip [ARCHIVE_CORRUPT]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCodeOf(t *testing.T) {
	inner := Wrap(CodeNetworkFailure, "download", "job", stderrors.New("timeout"))
	wrapped := fmt.Errorf("job failed: %w", inner)

	assert.Equal(t, CodeNetworkFailure, CodeOf(wrapped))
	assert.Equal(t, Code(""), CodeOf(stderrors.New("plain")))
	assert.True(t, Is(wrapped, CodeNetworkFailure))
	assert.False(t, Is(wrapped, CodeChecksumMismatch))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(CodeFileSystem, "op", "unit", nil))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(CodeArchiveCorrupt, "extract", "unit", cause)

	assert.True(t, stderrors.Is(err, cause))
}
