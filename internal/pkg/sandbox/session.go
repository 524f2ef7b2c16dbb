package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	api "github.com/agent-infra/sandbox-sdk-go"
	sandboxclient "github.com/agent-infra/sandbox-sdk-go/client"
	"github.com/rs/zerolog/log"
)

const defaultReadChunkBytes = 8 << 20 // 8 MiB of binary per extraction read

// Session is one render's view of the sandbox: a private working directory
// plus shell and file access scoped to it.
type Session struct {
	client         *sandboxclient.Client
	workdir        string
	execTimeout    time.Duration
	readChunkBytes int64
}

// Workdir returns the session's working directory inside the sandbox.
func (s *Session) Workdir() string {
	return s.workdir
}

// Path resolves name against the working directory. Absolute names pass
// through unchanged.
func (s *Session) Path(name string) string {
	if path.IsAbs(name) {
		return name
	}
	return path.Join(s.workdir, name)
}

// Exec runs command in the working directory and returns its combined output
// and exit code. A non-zero exit code is not an error here; callers decide
// what it means. The configured exec timeout applies when the caller has not
// set a deadline.
func (s *Session) Exec(ctx context.Context, command string) (string, int, error) {
	if _, ok := ctx.Deadline(); !ok && s.execTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.execTimeout)
		defer cancel()
	}

	wrapped := fmt.Sprintf("cd %s && { %s\n}", shellQuote(s.workdir), command)
	resp, err := s.client.Shell.ExecCommand(ctx, &api.ShellExecRequest{Command: wrapped})
	if err != nil {
		return "", 0, fmt.Errorf("sandbox exec failed: %w", err)
	}
	data := resp.GetData()
	if data == nil {
		return "", 0, fmt.Errorf("sandbox returned empty exec response")
	}

	var output string
	if out := data.GetOutput(); out != nil {
		output = *out
	}
	exitCode := 0
	if code := data.GetExitCode(); code != nil {
		exitCode = *code
	}
	return output, exitCode, nil
}

// WriteFile stores data at name inside the working directory. Content goes
// through the file API base64-encoded, so binary assets survive.
func (s *Session) WriteFile(ctx context.Context, name string, data []byte) error {
	encoding := api.FileContentEncodingBase64
	_, err := s.client.File.WriteFile(ctx, &api.FileWriteRequest{
		File:     s.Path(name),
		Content:  base64.StdEncoding.EncodeToString(data),
		Encoding: encoding.Ptr(),
	})
	if err != nil {
		return fmt.Errorf("sandbox write %s failed: %w", name, err)
	}
	return nil
}

// ReadFile returns the text content of name. Meant for small files; artifact
// extraction goes through DownloadFile.
func (s *Session) ReadFile(ctx context.Context, name string) (string, error) {
	resp, err := s.client.File.ReadFile(ctx, &api.FileReadRequest{File: s.Path(name)})
	if err != nil {
		return "", fmt.Errorf("sandbox read %s failed: %w", name, err)
	}
	data := resp.GetData()
	if data == nil {
		return "", fmt.Errorf("sandbox returned empty read response for %s", name)
	}
	return data.GetContent(), nil
}

// DownloadFile streams the file at name out of the sandbox into w using
// fixed-size binary reads, so only one encoded chunk is in memory at a time.
// Returns the number of bytes written.
func (s *Session) DownloadFile(ctx context.Context, name string, w io.Writer) (int64, error) {
	chunk := s.readChunkBytes
	if chunk <= 0 {
		chunk = defaultReadChunkBytes
	}
	return downloadLoop(ctx, s.Exec, s.Path(name), chunk, w)
}

// execFunc is the shell round trip downloadLoop drives; split out so the
// chunk loop is testable without a live sandbox.
type execFunc func(ctx context.Context, command string) (string, int, error)

func downloadLoop(ctx context.Context, run execFunc, remotePath string, chunkBytes int64, w io.Writer) (int64, error) {
	var total int64
	for index := int64(0); ; index++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		output, exitCode, err := run(ctx, readChunkCommand(remotePath, chunkBytes, index))
		if err != nil {
			return total, err
		}
		if exitCode != 0 {
			return total, fmt.Errorf("reading chunk %d of %s exited with code %d", index, remotePath, exitCode)
		}

		decoded, err := decodeChunk(output)
		if err != nil {
			return total, fmt.Errorf("chunk %d of %s is not valid base64: %w", index, remotePath, err)
		}
		if len(decoded) == 0 {
			return total, nil
		}

		n, err := w.Write(decoded)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("writing chunk %d: %w", index, err)
		}
		if int64(len(decoded)) < chunkBytes {
			return total, nil
		}
	}
}

// readChunkCommand reads one fixed-size binary slice and encodes it for the
// text-only shell channel.
func readChunkCommand(remotePath string, chunkBytes, index int64) string {
	return fmt.Sprintf("dd if=%s bs=%d skip=%d count=1 2>/dev/null | base64 -w 0",
		shellQuote(remotePath), chunkBytes, index)
}

// decodeChunk strips the whitespace shells sneak into output before decoding.
func decodeChunk(output string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, output)
	if compact == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(compact)
}

// teardown removes the working directory. Runs on a fresh context so a
// cancelled pipeline still cleans up.
func (s *Session) teardown() {
	if !strings.HasPrefix(s.workdir, workdirPrefix) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	command := fmt.Sprintf("rm -rf %s", shellQuote(s.workdir))
	resp, err := s.client.Shell.ExecCommand(ctx, &api.ShellExecRequest{Command: command})
	if err != nil {
		log.Warn().Err(err).Str("workdir", s.workdir).Msg("sandbox workdir cleanup failed")
		return
	}
	if data := resp.GetData(); data != nil {
		if code := data.GetExitCode(); code != nil && *code != 0 {
			log.Warn().Int("exit_code", *code).Str("workdir", s.workdir).Msg("sandbox workdir cleanup exited non-zero")
			return
		}
	}
	log.Debug().Str("workdir", s.workdir).Msg("sandbox workdir released")
}
