package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	demoExt           = ".dem"
	compressedDemoExt = ".dem.zst"
)

// ErrUnsupportedExtension is returned for a file that is neither .dem nor .dem.zst.
var ErrUnsupportedExtension = errors.New("batch: not a .dem or .dem.zst file")

// Input is one demo to decode.
type Input struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// IsDemoName reports whether name has a demo extension.
func IsDemoName(name string) bool {
	return strings.HasSuffix(name, demoExt) || strings.HasSuffix(name, compressedDemoExt)
}

// Resolve turns a path into inputs. A path is an s3://bucket/prefix URL, a directory,
// searched recursively, or a single demo file.
func Resolve(ctx context.Context, path string, objects ObjectAPI) ([]Input, error) {
	if bucket, prefix, ok := parseS3URL(path); ok {
		if objects == nil {
			return nil, fmt.Errorf("batch: %s: no s3 client configured", path)
		}
		return listObjects(ctx, objects, bucket, prefix)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !IsDemoName(path) {
			return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedExtension)
		}
		return []Input{fileInput(path)}, nil
	}

	var inputs []Input
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsDemoName(p) {
			inputs = append(inputs, fileInput(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })
	return inputs, nil
}

func fileInput(path string) Input {
	return Input{
		Name: path,
		Open: func(context.Context) (io.ReadCloser, error) { return os.Open(path) },
	}
}

// ReadInput reads a whole demo, decompressing .dem.zst inputs.
func ReadInput(ctx context.Context, in Input) ([]byte, error) {
	rc, err := in.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if !strings.HasSuffix(in.Name, compressedDemoExt) {
		return io.ReadAll(rc)
	}
	zr, err := zstd.NewReader(rc)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return data, nil
}
