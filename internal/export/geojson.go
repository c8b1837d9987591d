// Package export writes settlement networks as GeoJSON for map viewers.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/talgya/lingnet/internal/world"
)

// CompressedExt marks output paths that are written zstd-compressed.
const CompressedExt = ".zst"

// FeatureCollection builds one Point feature per settlement, valued at round t
// (or the current value when t is world.Now), followed by one LineString per edge.
func FeatureCollection(w *world.World, t int) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()

	views, err := w.Views(t)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		f := geojson.NewFeature(orb.Point{v.X, v.Y})
		f.ID = int(v.ID)
		f.Properties["kind"] = "settlement"
		f.Properties["id"] = int(v.ID)
		f.Properties["name"] = v.Name
		f.Properties["type"] = v.Type.String()
		f.Properties["size"] = v.Size
		f.Properties["val"] = v.Value
		fc.Append(f)
	}

	for _, e := range w.Edges() {
		a, b := w.Get(e.A), w.Get(e.B)
		f := geojson.NewFeature(orb.LineString{a.Position, b.Position})
		f.Properties["kind"] = "edge"
		f.Properties["a"] = int(e.A)
		f.Properties["b"] = int(e.B)
		f.Properties["weight"] = e.Weight
		fc.Append(f)
	}

	return fc, nil
}

// Write encodes the network at round t to out.
func Write(out io.Writer, w *world.World, t int) error {
	fc, err := FeatureCollection(w, t)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("geojson encode: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// WriteFile writes the network at round t to path, zstd-compressed when the
// path ends in ".zst". Returns the number of bytes written to disk.
func WriteFile(path string, w *world.World, t int) (int64, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if strings.HasSuffix(path, CompressedExt) {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return 0, err
		}
		if err := Write(enc, w, t); err != nil {
			enc.Close()
			return 0, err
		}
		if err := enc.Close(); err != nil {
			return 0, err
		}
	} else {
		bw := bufio.NewWriterSize(f, 64*1024)
		if err := Write(bw, w, t); err != nil {
			return 0, err
		}
		if err := bw.Flush(); err != nil {
			return 0, err
		}
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), f.Close()
}

// ReadFile loads a collection written by WriteFile.
func ReadFile(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, CompressedExt) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geojson decode: %w", err)
	}
	return fc, nil
}
