package ingest

import "strings"

// kindPriority orders container kinds from most to least preferred when a
// batch mixes several kinds. Unknown files are never selected.
var kindPriority = []ContainerKind{
	KindArchive,
	KindFlatTable,
	KindWorkbook,
	KindDocument,
}

// Classify returns the container kind for a filename using a
// case-insensitive suffix match. The content is never inspected.
func Classify(name string) ContainerKind {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindArchive
	case strings.HasSuffix(lower, ".csv"):
		return KindFlatTable
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return KindWorkbook
	case strings.HasSuffix(lower, ".pdf"):
		return KindDocument
	default:
		return KindUnknown
	}
}

// Partition groups files by container kind, preserving input order within each group.
func Partition(files []File) map[ContainerKind][]File {
	groups := make(map[ContainerKind][]File)
	for _, f := range files {
		k := Classify(f.Name)
		groups[k] = append(groups[k], f)
	}
	return groups
}

// Select returns the file that should be processed: the first file of the
// highest-priority non-empty group. ok is false when only unknown files remain.
func Select(files []File) (f File, kind ContainerKind, ok bool) {
	groups := Partition(files)
	for _, k := range kindPriority {
		if g := groups[k]; len(g) > 0 {
			return g[0], k, true
		}
	}
	return File{}, KindUnknown, false
}
