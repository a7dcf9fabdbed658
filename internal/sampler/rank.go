package sampler

import (
	"context"
	"sort"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
	"github.com/Dicklesworthstone/diskpulse/internal/source"
)

// ProcessResult is the outcome of reading one process. Err is set when the
// name or byte counters could not be read; FilesErr when only the open-file
// list failed.
type ProcessResult struct {
	IO       model.ProcessIO
	Err      error
	FilesErr error
}

// ReadProcesses reads every process once, in enumeration order. Open files are
// only listed when withFiles is set since that is the expensive part.
func ReadProcesses(ctx context.Context, procs []source.Process, withFiles bool) []ProcessResult {
	out := make([]ProcessResult, 0, len(procs))
	for _, p := range procs {
		res := ProcessResult{IO: model.ProcessIO{PID: p.PID()}}
		name, err := p.Name(ctx)
		if err != nil {
			res.Err = err
			out = append(out, res)
			continue
		}
		res.IO.Name = name
		res.IO.ReadBytes, res.IO.WriteBytes, res.Err = p.IOCounters(ctx)
		if res.Err == nil && withFiles {
			res.IO.OpenFiles, res.FilesErr = p.OpenFiles(ctx)
		}
		out = append(out, res)
	}
	return out
}

// RankProcesses returns up to n processes ordered by read+write bytes,
// descending. Failed reads are skipped; ties keep enumeration order.
func RankProcesses(results []ProcessResult, n int) []model.ProcessRank {
	ranked := make([]model.ProcessRank, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		ranked = append(ranked, model.ProcessRank{
			PID:        r.IO.PID,
			Name:       r.IO.Name,
			TotalBytes: r.IO.ReadBytes + r.IO.WriteBytes,
			ReadBytes:  r.IO.ReadBytes,
			WriteBytes: r.IO.WriteBytes,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].TotalBytes > ranked[j].TotalBytes })
	return truncate(ranked, n)
}

// RankFiles charges each readable process's cumulative bytes to every file it
// holds open, sums across processes, and returns up to n paths by combined
// bytes, descending. Ties keep first-seen order.
func RankFiles(results []ProcessResult, n int) []model.FileIO {
	byPath := make(map[string]int)
	var files []model.FileIO
	for _, r := range results {
		if r.Err != nil || r.FilesErr != nil {
			continue
		}
		seen := make(map[string]struct{}, len(r.IO.OpenFiles))
		for _, path := range r.IO.OpenFiles {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			idx, ok := byPath[path]
			if !ok {
				idx = len(files)
				byPath[path] = idx
				files = append(files, model.FileIO{Path: path})
			}
			files[idx].ReadBytes += r.IO.ReadBytes
			files[idx].WriteBytes += r.IO.WriteBytes
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].TotalBytes() > files[j].TotalBytes() })
	return truncate(files, n)
}

func truncate[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
