package datastructure

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const tileFileExt = ".gph.bz2"

// TileStore reads tiles from a directory (<dir>/<level>/<tileid>.gph.bz2) through an LRU cache.
type TileStore struct {
	dir       string
	hierarchy *TileHierarchy
	cache     *lru.Cache[GraphId, *Tile]
	missing   sync.Map
	log       *zap.Logger
}

func NewTileStore(dir string, cacheSize int, hierarchy *TileHierarchy, log *zap.Logger) (*TileStore, error) {
	cache, err := lru.New[GraphId, *Tile](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("tile cache: %w", err)
	}
	return &TileStore{
		dir:       dir,
		hierarchy: hierarchy,
		cache:     cache,
		log:       log,
	}, nil
}

func (s *TileStore) tilePath(base GraphId) string {
	return filepath.Join(s.dir, strconv.Itoa(int(base.Level())), strconv.FormatUint(uint64(base.TileId()), 10)+tileFileExt)
}

func (s *TileStore) GetGraphTile(id GraphId) *Tile {
	if !id.IsValid() {
		return nil
	}
	base := id.TileBase()
	if t, ok := s.cache.Get(base); ok {
		return t
	}
	if _, ok := s.missing.Load(base); ok {
		return nil
	}

	t, err := ReadTile(s.tilePath(base))
	if err != nil {
		s.missing.Store(base, struct{}{})
		s.log.Warn("unable to load tile", zap.String("tile", base.String()), zap.Error(err))
		return nil
	}
	s.cache.Add(base, t)
	return t
}

func (s *TileStore) TileHierarchy() *TileHierarchy {
	return s.hierarchy
}

// WriteTile stores t and drops any cached copy.
func (s *TileStore) WriteTile(t *Tile) error {
	path := s.tilePath(t.Id())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := WriteTile(t, path); err != nil {
		return err
	}
	s.cache.Remove(t.Id())
	s.missing.Delete(t.Id())
	return nil
}

// TileIds lists every tile present on disk.
func (s *TileStore) TileIds() ([]GraphId, error) {
	ids := make([]GraphId, 0)
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), tileFileExt) {
			return nil
		}
		level, err := strconv.Atoi(filepath.Base(filepath.Dir(path)))
		if err != nil {
			return nil
		}
		tileId, err := strconv.ParseUint(strings.TrimSuffix(d.Name(), tileFileExt), 10, 32)
		if err != nil {
			return nil
		}
		ids = append(ids, NewGraphId(uint32(tileId), uint8(level), 0))
		return nil
	})
	return ids, err
}

// Tiles loads every tile present on disk.
func (s *TileStore) Tiles() ([]*Tile, error) {
	ids, err := s.TileIds()
	if err != nil {
		return nil, err
	}
	tiles := make([]*Tile, 0, len(ids))
	for _, id := range ids {
		if t := s.GetGraphTile(id); t != nil {
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}
