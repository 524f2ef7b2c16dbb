package sandbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// chunkedExec fakes the shell round trip: call n returns the base64 of the
// nth chunk, then empty output once the chunks run out.
func chunkedExec(chunks [][]byte) (execFunc, *int) {
	calls := 0
	fn := func(ctx context.Context, command string) (string, int, error) {
		index := calls
		calls++
		if index >= len(chunks) {
			return "", 0, nil
		}
		return base64.StdEncoding.EncodeToString(chunks[index]), 0, nil
	}
	return fn, &calls
}

func TestDownloadLoop(t *testing.T) {
	Convey("Given a file extracted in fixed-size chunks", t, func() {
		ctx := context.Background()

		Convey("a trailing partial chunk ends the loop without another read", func() {
			chunks := [][]byte{
				bytes.Repeat([]byte{0xAB}, 8),
				bytes.Repeat([]byte{0xCD}, 8),
				{0x01, 0x02, 0x03},
			}
			run, calls := chunkedExec(chunks)

			var out bytes.Buffer
			total, err := downloadLoop(ctx, run, "/tmp/render_x/output.mp4", 8, &out)

			So(err, ShouldBeNil)
			So(total, ShouldEqual, 19)
			So(out.Bytes(), ShouldResemble, bytes.Join(chunks, nil))
			So(*calls, ShouldEqual, 3)
		})

		Convey("a file that is an exact multiple of the chunk size needs one empty read to stop", func() {
			chunks := [][]byte{
				bytes.Repeat([]byte{0x11}, 8),
				bytes.Repeat([]byte{0x22}, 8),
			}
			run, calls := chunkedExec(chunks)

			var out bytes.Buffer
			total, err := downloadLoop(ctx, run, "/tmp/render_x/output.mp4", 8, &out)

			So(err, ShouldBeNil)
			So(total, ShouldEqual, 16)
			So(*calls, ShouldEqual, 3)
		})

		Convey("an empty file yields zero bytes and no error", func() {
			run, _ := chunkedExec(nil)

			var out bytes.Buffer
			total, err := downloadLoop(ctx, run, "/tmp/render_x/output.mp4", 8, &out)

			So(err, ShouldBeNil)
			So(total, ShouldEqual, 0)
		})

		Convey("a non-zero exit code from the read command fails the download", func() {
			run := func(ctx context.Context, command string) (string, int, error) {
				return "dd: cannot open", 1, nil
			}

			var out bytes.Buffer
			_, err := downloadLoop(ctx, run, "/tmp/render_x/missing.mp4", 8, &out)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "exited with code 1")
		})

		Convey("invalid base64 output fails the download", func() {
			run := func(ctx context.Context, command string) (string, int, error) {
				return "not@base64!", 0, nil
			}

			var out bytes.Buffer
			_, err := downloadLoop(ctx, run, "/tmp/render_x/output.mp4", 8, &out)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not valid base64")
		})

		Convey("whitespace folded into the encoded output is tolerated", func() {
			payload := bytes.Repeat([]byte{0x5A}, 6)
			encoded := base64.StdEncoding.EncodeToString(payload)
			run := func(ctx context.Context, command string) (string, int, error) {
				return encoded[:4] + "\n" + encoded[4:] + "\n", 0, nil
			}

			var out bytes.Buffer
			total, err := downloadLoop(ctx, run, "/tmp/render_x/output.mp4", 8, &out)

			So(err, ShouldBeNil)
			So(total, ShouldEqual, 6)
			So(out.Bytes(), ShouldResemble, payload)
		})

		Convey("a cancelled context stops the loop", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			run, _ := chunkedExec([][]byte{bytes.Repeat([]byte{0x01}, 8)})

			var out bytes.Buffer
			_, err := downloadLoop(cancelled, run, "/tmp/render_x/output.mp4", 8, &out)

			So(err, ShouldEqual, context.Canceled)
		})
	})
}

func TestReadChunkCommand(t *testing.T) {
	Convey("The chunk read command pins block size and offset", t, func() {
		cmd := readChunkCommand("/tmp/render_a/output.mp4", 8<<20, 3)
		So(cmd, ShouldEqual, fmt.Sprintf("dd if='/tmp/render_a/output.mp4' bs=%d skip=3 count=1 2>/dev/null | base64 -w 0", 8<<20))
	})
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"/tmp/render_ab12", "'/tmp/render_ab12'"},
		{"with space", "'with space'"},
		{"don't", `'don'"'"'t'`},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0192ab3c", "0192ab3c"},
		{"a-b_c", "a-b_c"},
		{"../etc", "___etc"},
		{"a b;c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := sanitizeID(tt.in); got != tt.want {
			t.Errorf("sanitizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
