package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"gridscout.ai/internal/agent"
)

// Files lists the rotated files of one stream under dir, oldest first.
func Files(dir, prefix string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadJSONL decodes every line of a compressed JSONL file into a fresh T and
// hands it to fn. Returning an error from fn stops the scan.
func ReadJSONL[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadEpisodes loads every episode record under dataDir in write order.
func ReadEpisodes(dataDir string) ([]agent.EpisodeRecord, error) {
	paths, err := Files(filepath.Join(dataDir, "episodes"), "episodes")
	if err != nil {
		return nil, err
	}
	var out []agent.EpisodeRecord
	for _, p := range paths {
		err := ReadJSONL(p, func(r agent.EpisodeRecord) error {
			out = append(out, r)
			return nil
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
