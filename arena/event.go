package arena

import "go.uber.org/zap"

// eventKind names the write-only diagnostic events an arena emits. These
// are observational only — nothing in this package branches on them —
// mirroring the reference project's per-subsystem zap loggers
// (kernel/threads/arena/*.go all hold a *zap.Logger field and log
// structured fields rather than formatted strings).
type eventKind string

const (
	eventArenaAlloc          eventKind = "arena_alloc"
	eventArenaFree           eventKind = "arena_free"
	eventArenaAllocFail      eventKind = "arena_alloc_fail"
	eventArenaExtend         eventKind = "arena_extend"
	eventCommitLimitSet      eventKind = "commit_limit_set"
	eventSpareCommitLimitSet eventKind = "spare_commit_limit_set"
)

// logEvent converts a flat key/value list into zap fields and emits one
// structured log line tagged with the arena's id, at debug level: these
// are diagnostics for whoever is watching the arena, not operator-facing
// warnings.
func (a *Arena) logEvent(kind eventKind, kv ...any) {
	if a.log == nil {
		return
	}
	fields := make([]zap.Field, 0, len(kv)/2+1)
	fields = append(fields, zap.String("arena", a.id.String()))
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	a.log.Debug(string(kind), fields...)
}
