package raster

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ReadASCIIGrid reads an ESRI ASCII grid (.asc) file into a Surface. The CRS
// is not carried by the format itself and must be supplied by the caller
// (empty is allowed and surfaces as a configuration error later, at align time).
func ReadASCIIGrid(path, crs string) (*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open grid %s", path)
	}
	defer func() { _ = f.Close() }()

	s, err := ParseASCIIGrid(f, crs)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: parse grid %s", path)
	}

	zap.L().Debug("raster: loaded ASCII grid",
		zap.String("path", path),
		zap.Int("width", s.Width()),
		zap.Int("height", s.Height()),
		zap.String("crs", crs),
	)
	return s, nil
}

// ParseASCIIGrid parses ESRI ASCII grid content: a header of
// ncols/nrows/xllcorner/yllcorner/cellsize and optional nodata_value lines,
// followed by nrows*ncols whitespace-separated values in row-major order
// (north row first).
func ParseASCIIGrid(r io.Reader, crs string) (*Surface, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	header := map[string]float64{}
	var hasNoData bool
	var noData float64
	var values []float64

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		// Header lines are "name value" pairs; the first line that does not
		// start with a known key begins the data block.
		if len(fields) == 2 && values == nil {
			key := strings.ToLower(fields[0])
			switch key {
			case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value":
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, eris.Wrapf(err, "raster: header %s", key)
				}
				if key == "nodata_value" {
					noData = v
					hasNoData = true
				} else {
					header[key] = v
				}
				continue
			}
		}

		if values == nil {
			if err := checkHeader(header); err != nil {
				return nil, err
			}
			values = make([]float64, 0, int(header["ncols"])*int(header["nrows"]))
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "raster: cell value %q", field)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: read grid")
	}
	if values == nil {
		return nil, eris.New("raster: grid has no data rows")
	}

	width := int(header["ncols"])
	height := int(header["nrows"])
	if len(values) != width*height {
		return nil, eris.Errorf("raster: got %d values, want %d", len(values), width*height)
	}

	cell := header["cellsize"]
	tr := GeoTransform{
		OriginX:    header["xllcorner"],
		OriginY:    header["yllcorner"] + float64(height)*cell,
		CellWidth:  cell,
		CellHeight: cell,
	}
	var opts []Option
	if hasNoData {
		opts = append(opts, WithNoData(noData))
	}
	return New(values, width, height, tr, crs, opts...)
}

func checkHeader(header map[string]float64) error {
	for _, key := range []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"} {
		if _, ok := header[key]; !ok {
			return eris.Errorf("raster: header missing %s", key)
		}
	}
	if header["ncols"] < 1 || header["nrows"] < 1 {
		return eris.Errorf("raster: invalid grid size %gx%g", header["ncols"], header["nrows"])
	}
	if header["cellsize"] <= 0 {
		return eris.Errorf("raster: invalid cellsize %g", header["cellsize"])
	}
	return nil
}
