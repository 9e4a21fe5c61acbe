package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	qmcdecoder "github.com/devgianlu/go-qmcdecoder"
	"github.com/devgianlu/go-qmcdecoder/qmc"
	"github.com/gofrs/flock"
)

type jobResult struct {
	input  string
	output string
	cipher qmc.CipherKind
	size   int64

	// skipped is the reason the container was not decoded, if any.
	skipped string
	err     error
}

// collectInputs expands the given paths into the list of containers to decode, walking
// directories recursively. Explicit files with an unknown extension are ignored.
func (app *App) collectInputs(paths []string) ([]string, error) {
	var inputs []string
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed accessing input: %w", err)
		}

		if !stat.IsDir() {
			if !qmcdecoder.IsContainerPath(path) {
				app.log.Warnf("ignoring %s, unknown extension", path)
				continue
			}

			inputs = append(inputs, path)
			continue
		}

		if err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			} else if d.Type().IsRegular() && qmcdecoder.IsContainerPath(p) {
				inputs = append(inputs, p)
			}

			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed walking %s: %w", path, err)
		}
	}

	return inputs, nil
}

// openInput opens the container, retrying while the file is held by someone else.
func (app *App) openInput(ctx context.Context, path string) (*os.File, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = app.cfg.Retry.InitialInterval
	b.MaxElapsedTime = app.cfg.Retry.MaxElapsed

	var f *os.File
	err := backoff.RetryNotify(func() (err error) {
		f, err = os.Open(path)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		app.log.WithError(err).Debugf("failed opening %s, retrying in %v", path, d)
	})
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (app *App) decodeFile(ctx context.Context, j job) (res jobResult) {
	input := j.input
	res.input = input

	output, ok := qmcdecoder.OutputPath(input, app.cfg.OutputDir)
	if !ok {
		res.skipped = "unknown extension"
		return res
	}

	res.output = output

	lock := flock.New(output + ".lock")
	if locked, err := lock.TryLock(); err != nil {
		res.err = fmt.Errorf("failed locking output: %w", err)
		return res
	} else if !locked {
		res.skipped = "output is being written by someone else"
		return res
	}

	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	if !j.overwrite {
		if _, err := os.Stat(output); err == nil {
			res.skipped = "output already exists"
			return res
		}
	}

	res.cipher, res.size, res.err = app.decodeTo(ctx, input, output)
	return res
}

// decodeTo writes the audio to a partial file next to output and moves it in place only once
// the whole payload has been decoded.
func (app *App) decodeTo(ctx context.Context, input, output string) (_ qmc.CipherKind, _ int64, err error) {
	in, err := app.openInput(ctx, input)
	if err != nil {
		return 0, 0, fmt.Errorf("failed opening input: %w", err)
	}

	defer func() { _ = in.Close() }()

	dec, err := qmc.NewDecoder(LogrusAdapter{app.log.WithField("file", input)}, in)
	if err != nil {
		return 0, 0, err
	}

	partial := output + ".part"
	out, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, 0, fmt.Errorf("failed creating output: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	var written int64
	buf := make([]byte, app.cfg.BufferSize)
	for {
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			return 0, 0, err
		}

		n, err := dec.Decode(buf)
		if err != nil {
			_ = out.Close()
			return 0, 0, fmt.Errorf("failed decoding audio: %w", err)
		} else if n == 0 {
			break
		}

		if _, err := out.Write(buf[:n]); err != nil {
			_ = out.Close()
			return 0, 0, fmt.Errorf("failed writing output: %w", err)
		}

		written += int64(n)
	}

	if left := dec.Remaining(); left != 0 {
		_ = out.Close()
		return 0, 0, fmt.Errorf("decoding stopped with %d bytes of audio left", left)
	}

	if err := out.Close(); err != nil {
		return 0, 0, fmt.Errorf("failed closing output: %w", err)
	} else if err := os.Rename(partial, output); err != nil {
		return 0, 0, fmt.Errorf("failed moving output in place: %w", err)
	}

	return dec.CipherKind(), written, nil
}
