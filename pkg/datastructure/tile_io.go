package datastructure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/tiledroute/pkg"
	"github.com/paulmach/osm"
)

const tileFormatVersion = 1

// WriteTile writes t as bzip2 compressed text.
func WriteTile(t *Tile, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)
	defer w.Flush()

	return writeTile(t, w)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeTile(t *Tile, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d %d %d %d %d\n", tileFormatVersion, t.id.TileId(), t.id.Level(),
		len(t.nodes), len(t.edges)); err != nil {
		return err
	}

	for _, n := range t.nodes {
		if _, err := fmt.Fprintf(w, "%s %s %d %d %d %d %d\n", formatFloat(n.lat), formatFloat(n.lon),
			n.edgeIndex, n.edgeCount, n.access, n.nodeType, n.stopId); err != nil {
			return err
		}
	}

	for i, e := range t.edges {
		ei := t.edgeInfos[i]
		if _, err := fmt.Fprintf(w, "%d %s %s %d %d %d %d %d %d %d %s %s %d %d %d %s\n",
			uint64(e.endNode), formatFloat(e.length), formatFloat(e.speed), e.class, e.use,
			e.forwardAccess, e.reverseAccess, e.localIdx, e.oppIndex, e.restrictions,
			formatFloat(e.beginHeading), formatFloat(e.endHeading), e.flags, e.lineId,
			int64(ei.wayId), strconv.Quote(ei.name)); err != nil {
			return err
		}
	}
	return nil
}

// ReadTile reads a tile written by WriteTile.
func ReadTile(filename string) (*Tile, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	return readTile(bufio.NewReader(bz))
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) || len(line) == 0 {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var errInvalidTileFormat = errors.New("invalid tile format")

func readTile(br *bufio.Reader) (*Tile, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}

	var (
		version, tileId   uint32
		level             uint8
		numNodes, numEdge int
	)
	if _, err := fmt.Sscanf(line, "%d %d %d %d %d", &version, &tileId, &level, &numNodes, &numEdge); err != nil {
		return nil, fmt.Errorf("%w: header: %v", errInvalidTileFormat, err)
	}
	if version != tileFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errInvalidTileFormat, version)
	}

	t := NewTile(NewGraphId(tileId, level, 0))
	t.nodes = make([]NodeInfo, numNodes)
	t.edges = make([]DirectedEdge, numEdge)
	t.edgeInfos = make([]EdgeInfo, numEdge)

	for i := 0; i < numNodes; i++ {
		line, err = readLine(br)
		if err != nil {
			return nil, err
		}
		n := &t.nodes[i]
		if _, err := fmt.Sscanf(line, "%g %g %d %d %d %d %d", &n.lat, &n.lon, &n.edgeIndex, &n.edgeCount,
			&n.access, &n.nodeType, &n.stopId); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", errInvalidTileFormat, i, err)
		}
	}

	for i := 0; i < numEdge; i++ {
		line, err = readLine(br)
		if err != nil {
			return nil, err
		}
		parts := strings.SplitN(line, " ", 16)
		if len(parts) != 16 {
			return nil, fmt.Errorf("%w: edge %d", errInvalidTileFormat, i)
		}

		var (
			e          = &t.edges[i]
			endNode    uint64
			class, use uint8
			wayId      int64
		)
		if _, err := fmt.Sscanf(strings.Join(parts[:15], " "), "%d %g %g %d %d %d %d %d %d %d %g %g %d %d %d",
			&endNode, &e.length, &e.speed, &class, &use, &e.forwardAccess, &e.reverseAccess,
			&e.localIdx, &e.oppIndex, &e.restrictions, &e.beginHeading, &e.endHeading, &e.flags,
			&e.lineId, &wayId); err != nil {
			return nil, fmt.Errorf("%w: edge %d: %v", errInvalidTileFormat, i, err)
		}
		e.endNode = GraphId(endNode)
		e.class = pkg.OsmHighwayType(class)
		e.use = EdgeUse(use)

		name, err := strconv.Unquote(parts[15])
		if err != nil {
			return nil, fmt.Errorf("%w: edge %d name: %v", errInvalidTileFormat, i, err)
		}
		t.edgeInfos[i] = EdgeInfo{wayId: osm.WayID(wayId), name: name}
	}

	return t, nil
}
