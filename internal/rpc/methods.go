package rpc

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/yorha59/surf/internal/scanner"
	"github.com/yorha59/surf/internal/sizefmt"
	"github.com/yorha59/surf/internal/task"
)

// timeNow is a seam for tests.
var timeNow = time.Now

type scanParams struct {
	Path            string          `json:"path"`
	MinSize         json.RawMessage `json:"min_size"`
	Threads         *int            `json:"threads"`
	Limit           *int            `json:"limit"`
	ExcludePatterns []string        `json:"exclude_patterns"`
	StaleDays       *int            `json:"stale_days"`
	Tag             string          `json:"tag"`
}

type scanResult struct {
	TaskID       string `json:"task_id"`
	State        string `json:"state"`
	Path         string `json:"path"`
	MinSizeBytes uint64 `json:"min_size_bytes"`
	Threads      int    `json:"threads"`
	Limit        *int   `json:"limit,omitempty"`
}

func (s *Server) handleScan(raw, id json.RawMessage) string {
	var p scanParams
	if err := unmarshalParams(raw, &p); err != nil {
		return errorLine(codeInvalidParams, "invalid Surf.Scan params: "+err.Error(), id)
	}
	if p.Path == "" {
		return errorLine(codeInvalidParams, "path is required", id)
	}

	minSize, err := decodeMinSize(p.MinSize)
	if err != nil {
		return errorLine(codeInvalidParams, "invalid min_size: "+err.Error(), id)
	}

	threads := runtime.NumCPU()
	if p.Threads != nil {
		if *p.Threads < 1 {
			return errorLine(codeInvalidParams, "invalid threads: must be >= 1", id)
		}
		threads = *p.Threads
	}

	limit := scanner.DefaultLimit
	if p.Limit != nil {
		if *p.Limit < 0 {
			return errorLine(codeInvalidParams, "invalid limit: must be >= 0", id)
		}
		limit = *p.Limit
	}

	staleDays := -1
	if p.StaleDays != nil {
		if *p.StaleDays < 0 {
			return errorLine(codeInvalidParams, "invalid stale_days: must be >= 0", id)
		}
		staleDays = *p.StaleDays
	}

	h, err := scanner.Start(scanner.Config{
		Root:            p.Path,
		MinSize:         minSize,
		Threads:         threads,
		ExcludePatterns: p.ExcludePatterns,
		StaleDays:       staleDays,
		Limit:           limit,
		Logger:          s.log,
	})
	if err != nil {
		return errorLine(codeInvalidParams, "scan start failed: "+err.Error(), id)
	}

	taskID := s.mgr.Register(p.Path, minSize, threads, limit, p.Tag, task.Running, h)
	s.log.Info("scan started",
		zap.String("task_id", taskID),
		zap.String("path", p.Path),
		zap.Int("threads", threads))

	return resultLine(scanResult{
		TaskID:       taskID,
		State:        task.Running.String(),
		Path:         p.Path,
		MinSizeBytes: minSize,
		Threads:      threads,
		Limit:        p.Limit,
	}, id)
}

// decodeMinSize accepts a size literal string (via the codec) or a plain
// non-negative integer byte count.
func decodeMinSize(raw json.RawMessage) (uint64, error) {
	trimmed := trimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return 0, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		return sizefmt.Parse(s)
	}
	var n uint64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, fmt.Errorf("not a whole non-negative number: %s", trimmed)
	}
	return n, nil
}

type statusParams struct {
	TaskID json.RawMessage `json:"task_id"`
}

type statusResult struct {
	TaskID             string  `json:"task_id"`
	State              string  `json:"state"`
	Progress           float64 `json:"progress"`
	ScannedFiles       uint64  `json:"scanned_files"`
	ScannedBytes       uint64  `json:"scanned_bytes"`
	TotalBytesEstimate *uint64 `json:"total_bytes_estimate"`
	StartedAt          int64   `json:"started_at"`
	UpdatedAt          int64   `json:"updated_at"`
	Tag                string  `json:"tag,omitempty"`
}

func statusOf(info task.Info) statusResult {
	out := statusResult{
		TaskID:    info.ID,
		State:     info.State.String(),
		StartedAt: info.StartedAt.Unix(),
		UpdatedAt: info.UpdatedAt.Unix(),
		Tag:       info.Tag,
	}
	if info.Handle != nil {
		st := info.Handle.Poll()
		out.ScannedFiles = st.Progress.ScannedFiles
		out.ScannedBytes = st.Progress.ScannedBytes
		out.TotalBytesEstimate = st.Progress.TotalBytesEstimate
		if est := st.Progress.TotalBytesEstimate; est != nil && *est > 0 {
			out.Progress = float64(st.Progress.ScannedBytes) / float64(*est)
			if out.Progress > 1 {
				out.Progress = 1
			}
		}
	}
	return out
}

func (s *Server) handleStatus(raw, id json.RawMessage) string {
	var p statusParams
	if err := unmarshalParams(raw, &p); err != nil {
		return errorLine(codeInvalidParams, "invalid Surf.Status params: "+err.Error(), id)
	}

	trimmed := trimSpace(p.TaskID)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		// Listing mode: advance running tasks first so freshly-finished
		// ones drop out of the active set.
		s.mgr.AdvanceAll()
		active := s.mgr.ListActive()
		list := make([]statusResult, 0, len(active))
		for _, info := range active {
			list = append(list, statusOf(info))
		}
		return resultLine(list, id)
	}

	var taskID string
	if err := json.Unmarshal(trimmed, &taskID); err != nil {
		return errorLine(codeInvalidParams, "task_id must be a string or null", id)
	}
	if taskID == "" {
		return errorLine(codeInvalidParams, "task_id must not be empty", id)
	}

	s.mgr.Advance(taskID)
	info, ok := s.mgr.Get(taskID)
	if !ok {
		return errorLine(codeTaskNotFound, "unknown task_id: "+taskID, id)
	}
	return resultLine(statusOf(info), id)
}

type getResultsParams struct {
	TaskID string `json:"task_id"`
	Mode   string `json:"mode"`
	Limit  *int   `json:"limit"`
}

type resultEntry struct {
	Path string `json:"path"`
	Size uint64 `json:"size"`
}

type summaryResult struct {
	Root           string  `json:"root"`
	TotalFiles     uint64  `json:"total_files"`
	TotalDirs      uint64  `json:"total_dirs"`
	TotalSizeBytes uint64  `json:"total_size_bytes"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

type extensionResult struct {
	Ext            string `json:"ext"`
	FileCount      uint64 `json:"file_count"`
	TotalSizeBytes uint64 `json:"total_size_bytes"`
}

type getResultsResult struct {
	TaskID      string            `json:"task_id"`
	State       string            `json:"state"`
	Path        string            `json:"path"`
	TotalFiles  uint64            `json:"total_files"`
	TotalBytes  uint64            `json:"total_bytes"`
	Entries     []resultEntry     `json:"entries"`
	Summary     *summaryResult    `json:"summary,omitempty"`
	ByExtension []extensionResult `json:"by_extension,omitempty"`
}

func (s *Server) handleGetResults(raw, id json.RawMessage) string {
	var p getResultsParams
	if err := unmarshalParams(raw, &p); err != nil {
		return errorLine(codeInvalidParams, "invalid Surf.GetResults params: "+err.Error(), id)
	}
	if p.TaskID == "" {
		return errorLine(codeInvalidParams, "task_id must not be empty", id)
	}

	mode := p.Mode
	if mode == "" {
		mode = "flat"
	}
	if mode != "flat" && mode != "summary" {
		return errorLine(codeInvalidParams, "unknown mode: "+p.Mode, id)
	}
	if p.Limit != nil && *p.Limit < 0 {
		return errorLine(codeInvalidParams, "invalid limit: must be >= 0", id)
	}

	s.mgr.Advance(p.TaskID)
	info, ok := s.mgr.Get(p.TaskID)
	if !ok {
		return errorLine(codeTaskNotFound, "unknown task_id: "+p.TaskID, id)
	}
	if info.State != task.Completed {
		return errorLine(codeInvalidParams, "task not completed: current state is "+info.State.String(), id)
	}
	if info.Handle == nil {
		return errorLine(codeInternalError, "no result attached to task "+p.TaskID, id)
	}

	res, err := info.Handle.Result()
	if err != nil {
		return errorLine(codeInternalError, "result unavailable: "+err.Error(), id)
	}

	source := res.Entries
	if mode == "summary" {
		source = res.TopFiles
	}
	if p.Limit != nil && len(source) > *p.Limit {
		source = source[:*p.Limit]
	}
	entries := make([]resultEntry, 0, len(source))
	for _, e := range source {
		entries = append(entries, resultEntry{Path: e.Path, Size: e.Size})
	}

	out := getResultsResult{
		TaskID:     p.TaskID,
		State:      info.State.String(),
		Path:       info.Path,
		TotalFiles: res.Summary.TotalFiles,
		TotalBytes: res.Summary.TotalSizeBytes,
		Entries:    entries,
	}
	if mode == "summary" {
		out.Summary = &summaryResult{
			Root:           res.Summary.Root,
			TotalFiles:     res.Summary.TotalFiles,
			TotalDirs:      res.Summary.TotalDirs,
			TotalSizeBytes: res.Summary.TotalSizeBytes,
			ElapsedSeconds: res.Summary.ElapsedSeconds,
		}
		for _, st := range res.ByExtension {
			out.ByExtension = append(out.ByExtension, extensionResult{
				Ext:            st.Ext,
				FileCount:      st.FileCount,
				TotalSizeBytes: st.TotalSizeBytes,
			})
		}
	}
	return resultLine(out, id)
}

type cancelParams struct {
	TaskID string `json:"task_id"`
}

type cancelResult struct {
	TaskID        string `json:"task_id"`
	PreviousState string `json:"previous_state"`
	CurrentState  string `json:"current_state"`
}

func (s *Server) handleCancel(raw, id json.RawMessage) string {
	var p cancelParams
	if err := unmarshalParams(raw, &p); err != nil {
		return errorLine(codeInvalidParams, "invalid Surf.Cancel params: "+err.Error(), id)
	}
	if p.TaskID == "" {
		return errorLine(codeInvalidParams, "task_id must not be empty", id)
	}

	prev, updated, ok := s.mgr.Cancel(p.TaskID)
	if !ok {
		return errorLine(codeTaskNotFound, "unknown task_id: "+p.TaskID, id)
	}
	s.log.Info("cancel requested",
		zap.String("task_id", p.TaskID),
		zap.String("previous", prev.String()),
		zap.String("current", updated.State.String()))

	return resultLine(cancelResult{
		TaskID:        p.TaskID,
		PreviousState: prev.String(),
		CurrentState:  updated.State.String(),
	}, id)
}

// unmarshalParams decodes object params, treating absent and null as empty.
func unmarshalParams(raw json.RawMessage, dst any) error {
	trimmed := trimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	return json.Unmarshal(trimmed, dst)
}
