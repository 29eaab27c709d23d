package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HPNChanel/data-guardian/internal/detect"
	"github.com/HPNChanel/data-guardian/internal/policy"
	"github.com/HPNChanel/data-guardian/internal/redact"
	"github.com/HPNChanel/data-guardian/internal/types"
)

// handlerFunc runs one method. A non-nil *Error becomes the response's
// error member.
type handlerFunc func(s *session, params json.RawMessage) (any, *Error)

var methods = map[string]handlerFunc{
	"core.ping":        handlePing,
	"core.scan_text":   handleScanText,
	"core.scan_path":   handleScanPath,
	"core.redact_text": handleRedactText,
	"core.redact_file": handleRedactFile,
	"core.load_policy": handleLoadPolicy,
	"core.test_policy": handleTestPolicy,
	"core.get_status":  handleGetStatus,
	"core.tail_logs":   handleTailLogs,
}

// Methods returns the daemon's method names.
func Methods() []string {
	out := make([]string, 0, len(methods))
	for name := range methods {
		out = append(out, name)
	}
	return out
}

func decodeParams(params json.RawMessage, dst any) *Error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return errInvalidParams("invalid params: " + err.Error())
	}
	return nil
}

type pingResult struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

func handlePing(s *session, _ json.RawMessage) (any, *Error) {
	return pingResult{OK: true, Version: s.srv.opts.Version}, nil
}

type detectorSelectors struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

type scanParams struct {
	Text       string             `json:"text"`
	Path       string             `json:"path"`
	Detectors  *detectorSelectors `json:"detectors"`
	MaxResults int                `json:"max_results"`
}

type scanResult struct {
	Detections []types.Detection `json:"detections"`
	Warnings   []detect.Warning  `json:"warnings,omitempty"`
}

// scanOptions starts from the active policy's detector selectors; explicit
// request params override them.
func (s *session) scanOptions(p *scanParams) detect.Options {
	opts := s.srv.policies.Active().ScanOptions()
	if p.Detectors != nil {
		opts.Include = p.Detectors.Include
		opts.Exclude = p.Detectors.Exclude
	}
	if p.MaxResults > 0 {
		opts.MaxResults = p.MaxResults
	}
	return opts
}

func handleScanText(s *session, params json.RawMessage) (any, *Error) {
	var p scanParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Path != "" {
		return nil, errInvalidParams("scan_text takes text, not path")
	}
	res := s.srv.registry.Scan(p.Text, s.scanOptions(&p))
	return scanResult{Detections: nonNilDetections(res.Detections), Warnings: res.Warnings}, nil
}

func handleScanPath(s *session, params json.RawMessage) (any, *Error) {
	var p scanParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, errInvalidParams("path is required")
	}
	text, herr := readTextFile(p.Path)
	if herr != nil {
		return nil, herr
	}
	res := s.srv.registry.Scan(text, s.scanOptions(&p))
	return scanResult{Detections: nonNilDetections(res.Detections), Warnings: res.Warnings}, nil
}

type redactTextParams struct {
	Text       string             `json:"text"`
	Detectors  *detectorSelectors `json:"detectors"`
	MaxResults int                `json:"max_results"`
}

type redactResult struct {
	Output     string            `json:"output"`
	Detections []types.Detection `json:"detections"`
	Decisions  []types.Decision  `json:"decisions"`
	Segments   []types.Segment   `json:"segments"`
	Warnings   []detect.Warning  `json:"warnings,omitempty"`
}

func (s *session) redact(text string, p *scanParams) redactResult {
	pol := s.srv.policies.Active()
	res := s.srv.registry.Scan(text, s.scanOptions(p))
	output, decisions := redact.Apply(text, res.Detections, pol)
	return redactResult{
		Output:     output,
		Detections: nonNilDetections(res.Detections),
		Decisions:  nonNilDecisions(decisions),
		Segments:   nonNilSegments(redact.Diff(text, output)),
		Warnings:   res.Warnings,
	}
}

func handleRedactText(s *session, params json.RawMessage) (any, *Error) {
	var p redactTextParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.redact(p.Text, &scanParams{Detectors: p.Detectors, MaxResults: p.MaxResults}), nil
}

type redactFileParams struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

type redactFileResult struct {
	OutputPath string            `json:"output_path"`
	Detections []types.Detection `json:"detections"`
	Decisions  []types.Decision  `json:"decisions"`
	Warnings   []detect.Warning  `json:"warnings,omitempty"`
}

func handleRedactFile(s *session, params json.RawMessage) (any, *Error) {
	var p redactFileParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, errInvalidParams("path is required")
	}
	text, herr := readTextFile(p.Path)
	if herr != nil {
		return nil, herr
	}
	outPath := p.OutputPath
	if outPath == "" {
		outPath = p.Path + ".redacted"
	}
	outPath, herr = resolvePath(outPath)
	if herr != nil {
		return nil, herr
	}

	res := s.redact(text, &scanParams{})
	if err := writeFileExclusive(outPath, []byte(res.Output)); err != nil {
		return nil, errInternal("write output: " + err.Error())
	}
	s.srv.log.Info("file redacted", "path", p.Path, "output", outPath, "detections", len(res.Detections))
	return redactFileResult{
		OutputPath: outPath,
		Detections: res.Detections,
		Decisions:  res.Decisions,
		Warnings:   res.Warnings,
	}, nil
}

type policyParams struct {
	Path   string          `json:"path"`
	Policy json.RawMessage `json:"policy"`
	Text   string          `json:"text"`
}

// resolvePolicy enforces the path-or-inline exclusivity and returns the
// compiled document. With neither set it returns nil.
func resolvePolicy(p *policyParams) (*policy.Compiled, *Error) {
	switch {
	case p.Path != "" && len(p.Policy) > 0:
		return nil, errInvalidParams("path and policy are mutually exclusive")
	case p.Path != "":
		path, herr := resolvePath(p.Path)
		if herr != nil {
			return nil, herr
		}
		doc, err := policy.LoadFile(path)
		if err != nil {
			return nil, errInvalidParams(err.Error())
		}
		compiled, err := policy.Compile(doc)
		if err != nil {
			return nil, errInvalidParams(err.Error())
		}
		return compiled, nil
	case len(p.Policy) > 0:
		doc, err := policy.Parse(p.Policy)
		if err != nil {
			return nil, errInvalidParams(err.Error())
		}
		compiled, err := policy.Compile(doc)
		if err != nil {
			return nil, errInvalidParams(err.Error())
		}
		return compiled, nil
	}
	return nil, nil
}

type loadPolicyResult struct {
	OK    bool   `json:"ok"`
	Name  string `json:"name"`
	Rules int    `json:"rules"`
}

func handleLoadPolicy(s *session, params json.RawMessage) (any, *Error) {
	var p policyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	compiled, herr := resolvePolicy(&p)
	if herr != nil {
		return nil, herr
	}
	if compiled == nil {
		return nil, errInvalidParams("either path or policy is required")
	}
	s.srv.policies.Swap(compiled)
	s.srv.log.Info("policy loaded", "name", compiled.Name(), "rules", len(compiled.Document().Rules))
	return loadPolicyResult{OK: true, Name: compiled.Name(), Rules: len(compiled.Document().Rules)}, nil
}

type testPolicyResult struct {
	Name       string            `json:"name"`
	Output     string            `json:"output"`
	Detections []types.Detection `json:"detections"`
	Decisions  []types.Decision  `json:"decisions"`
	Warnings   []detect.Warning  `json:"warnings,omitempty"`
}

// handleTestPolicy previews a policy against sample text without
// installing it. With no policy supplied the active one is evaluated.
func handleTestPolicy(s *session, params json.RawMessage) (any, *Error) {
	var p policyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	pol, herr := resolvePolicy(&p)
	if herr != nil {
		return nil, herr
	}
	if pol == nil {
		pol = s.srv.policies.Active()
	}
	opts := pol.ScanOptions()
	res := s.srv.registry.Scan(p.Text, opts)
	output, decisions := redact.Apply(p.Text, res.Detections, pol)
	return testPolicyResult{
		Name:       pol.Name(),
		Output:     output,
		Detections: nonNilDetections(res.Detections),
		Decisions:  nonNilDecisions(decisions),
		Warnings:   res.Warnings,
	}, nil
}

func handleGetStatus(s *session, _ json.RawMessage) (any, *Error) {
	return s.srv.state.Snapshot(s.srv.logs.SubscriberCount()), nil
}

type tailLogsResult struct {
	Subscribed bool `json:"subscribed"`
}

// handleTailLogs acknowledges the subscription, then pumps every broadcast
// event to the connection as core.log notifications until the subscription
// or connection closes.
func handleTailLogs(s *session, _ json.RawMessage) (any, *Error) {
	sub, fresh := s.subscribe()
	if !fresh {
		return tailLogsResult{Subscribed: true}, nil
	}
	return ackThen{
		result: tailLogsResult{Subscribed: true},
		then: func() {
			for e := range sub.Events() {
				if err := s.notify("core.log", e); err != nil {
					sub.Close()
					return
				}
			}
		},
	}, nil
}

// resolvePath normalizes a client-supplied path and rejects traversal.
func resolvePath(p string) (string, *Error) {
	if p == "" {
		return "", errInvalidParams("path is required")
	}
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return "", &Error{Code: CodePathRejected, Message: "path rejected: traversal not allowed", Data: p}
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", &Error{Code: CodePathRejected, Message: "path rejected: " + err.Error(), Data: p}
	}
	return abs, nil
}

func readTextFile(p string) (string, *Error) {
	path, herr := resolvePath(p)
	if herr != nil {
		return "", herr
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", &Error{Code: CodePathRejected, Message: "path rejected: " + err.Error(), Data: p}
	}
	if !info.Mode().IsRegular() {
		return "", &Error{Code: CodePathRejected, Message: "path rejected: not a regular file", Data: p}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errInternal(fmt.Sprintf("read %s: %v", p, err))
	}
	return string(data), nil
}

// writeFileExclusive writes redacted output readable by the owner only,
// creating the parent directory when needed.
func writeFileExclusive(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func nonNilDetections(d []types.Detection) []types.Detection {
	if d == nil {
		return []types.Detection{}
	}
	return d
}

func nonNilDecisions(d []types.Decision) []types.Decision {
	if d == nil {
		return []types.Decision{}
	}
	return d
}

func nonNilSegments(s []types.Segment) []types.Segment {
	if s == nil {
		return []types.Segment{}
	}
	return s
}
