package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/sim/encoding"
	"gridscout.ai/internal/sim/grid"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Episode uint64 `json:"episode"`
	Tick    uint64 `json:"tick"`
}

// MapDumpV1 is the planner input of one episode: the observed map, where
// the agent stood and which frontier directions it was about to search.
type MapDumpV1 struct {
	Header Header `json:"header"`

	Size       int      `json:"size"`
	Origin     [2]int   `json:"origin"`
	Weather    string   `json:"weather"`
	Directions []string `json:"directions"`
	CellsRLE   string   `json:"cells_rle"`
	ElevRLE    string   `json:"elev_rle"`
}

// Capture builds a dump from a planner request.
func Capture(episode, tick uint64, req dispatch.Request) MapDumpV1 {
	cells, elev := encoding.EncodeMap(req.Map)
	d := MapDumpV1{
		Header:   Header{Version: Version, Episode: episode, Tick: tick},
		Size:     req.Map.Size(),
		Origin:   [2]int{req.Origin.Row, req.Origin.Col},
		Weather:  req.Weather.String(),
		CellsRLE: cells,
		ElevRLE:  elev,
	}
	for _, dir := range req.Directions {
		d.Directions = append(d.Directions, dir.String())
	}
	return d
}

func (d MapDumpV1) Map() (*grid.Map, error) {
	return encoding.DecodeMap(d.Size, d.CellsRLE, d.ElevRLE)
}

// Request rebuilds the planner request. Dumps carry no visited set, so the
// revisit fallback sees the recorded directions again.
func (d MapDumpV1) Request() (dispatch.Request, error) {
	m, err := d.Map()
	if err != nil {
		return dispatch.Request{}, err
	}
	w, err := grid.ParseWeather(d.Weather)
	if err != nil {
		return dispatch.Request{}, err
	}
	req := dispatch.Request{
		Map:     m,
		Origin:  grid.Pos{Row: d.Origin[0], Col: d.Origin[1]},
		Weather: w,
	}
	if !m.InBounds(req.Origin) {
		return dispatch.Request{}, fmt.Errorf("origin %s outside %dx%d map", req.Origin, d.Size, d.Size)
	}
	for _, s := range d.Directions {
		dir, err := frontier.ParseDirection(s)
		if err != nil {
			return dispatch.Request{}, err
		}
		req.Directions = append(req.Directions, dir)
	}
	return req, nil
}

// PathFor names the dump of one episode under dir.
func PathFor(dir string, episode uint64) string {
	return filepath.Join(dir, fmt.Sprintf("episode-%06d.snap.zst", episode))
}

// List returns the dumps under dir in episode order.
func List(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "episode-*.snap.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func Write(path string, snap MapDumpV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func Read(path string) (MapDumpV1, error) {
	var snap MapDumpV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
