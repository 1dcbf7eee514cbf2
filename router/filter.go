package router

import (
	n2k "github.com/seatrack/n2krouter"
)

// SourceFilter admits a message only when its source address matches the one
// configured for its PGN. PGNs without an entry are admitted unconditionally.
// Applied after reassembly, before monitor dispatch.
type SourceFilter struct {
	allowedSource map[uint32]uint8
}

func NewSourceFilter(pgnSourceMap map[uint32]uint8) *SourceFilter {
	allowed := make(map[uint32]uint8, len(pgnSourceMap))
	for pgn, source := range pgnSourceMap {
		allowed[pgn] = source
	}
	return &SourceFilter{allowedSource: allowed}
}

func (f *SourceFilter) Admit(header n2k.CanBusHeader) bool {
	source, ok := f.allowedSource[header.PGN]
	if !ok {
		return true
	}
	return source == header.Source
}
