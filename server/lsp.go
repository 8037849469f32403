package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "codel-lsp"

var lspLog = commonlog.GetLogger("codel.lsp")

// LspServer provides diagnostics, hover and completion for text grids.
type LspServer struct {
	worker *EngineWorker
	opts   compiler.Options

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates an LSP server that compiles documents with opts.
func NewLSP(opts compiler.Options) *LspServer {
	s := &LspServer{
		worker:  NewEngineWorker(&Engine{}),
		opts:    opts,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Infof("%s initializing", lspName)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	result, err := s.worker.Do(func(*Engine) interface{} {
		return hoverAt(text, params.Position)
	})
	if err != nil {
		return nil, err
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return completionsAt(text, params.Position), nil
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, err := s.worker.Do(func(*Engine) interface{} {
		return diagnose(text, s.opts)
	})
	if err != nil {
		lspLog.Errorf("diagnostics for %s: %v", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.([]protocol.Diagnostic),
	})
}

// diagnose reports parse errors, and for grids that parse, paths the
// compiler had to cut short.
func diagnose(text string, opts compiler.Options) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	g, err := grid.ParseString(text)
	if err != nil {
		var perr *grid.ParseError
		switch {
		case errors.As(err, &perr):
			col := 0
			if perr.Column > 0 {
				col = perr.Column - 1
			}
			diagnostics = append(diagnostics, diagnostic(perr.Line-1, col, protocol.DiagnosticSeverityError, perr.Msg))
		case errors.Is(err, grid.ErrEmptyGrid):
			diagnostics = append(diagnostics, diagnostic(0, 0, protocol.DiagnosticSeverityWarning, "no codels"))
		default:
			diagnostics = append(diagnostics, diagnostic(0, 0, protocol.DiagnosticSeverityError, err.Error()))
		}
		return diagnostics
	}

	ectx, err := compiler.NewExecutionContext(g, nil)
	if err != nil {
		return append(diagnostics, diagnostic(0, 0, protocol.DiagnosticSeverityError, err.Error()))
	}
	prog, err := compiler.Compile(ectx, opts)
	if err != nil {
		return append(diagnostics, diagnostic(0, 0, protocol.DiagnosticSeverityError, err.Error()))
	}
	if prog.Complete() {
		return diagnostics
	}

	lines := gridLines(text)
	for i, in := range prog.Instructions {
		var msg string
		switch in.Op {
		case compiler.OpTimeout:
			msg = fmt.Sprintf("path %04d stopped after the transition limit", i)
		case compiler.OpTrapped:
			msg = fmt.Sprintf("path %04d is trapped in white", i)
		default:
			continue
		}
		row, col := opts.StartRow, opts.StartCol
		if in.Block >= 0 {
			if cells := ectx.Blocks.Cells(in.Block); len(cells) > 0 {
				row, col = cells[0][0], cells[0][1]
			}
		}
		diagnostics = append(diagnostics, diagnostic(lines[row], col, protocol.DiagnosticSeverityWarning, msg))
	}
	return diagnostics
}

func diagnostic(line, col int, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
			End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + 1)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// hoverAt describes the codel under pos: its colour, its block and the
// command reached by moving from it to each colour.
func hoverAt(text string, pos protocol.Position) *protocol.Hover {
	row, col, ok := codelAt(text, pos)
	if !ok {
		return nil
	}
	g, err := grid.ParseString(text)
	if err != nil {
		return nil
	}
	blocks := grid.Analyze(g)
	c := g.At(row, col)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`\n\n", c, c.Hex())
	fmt.Fprintf(&b, "Block %d, %d codels, at row %d column %d\n", blocks.Label(row, col), blocks.Size(row, col), row, col)

	if c.Chromatic() {
		b.WriteString("\n| to | command |\n|---|---|\n")
		for _, e := range compiler.DefaultTable().Row(c) {
			if !e.Defined {
				continue
			}
			fmt.Fprintf(&b, "| `%c` %s | %s |\n", grid.CodelChar(e.Colour), e.Colour, e.Op)
		}
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// completionsAt offers every codel character. When the cursor follows a
// chromatic codel, each item's detail is the command the transition
// performs.
func completionsAt(text string, pos protocol.Position) []protocol.CompletionItem {
	base := grid.White
	if pos.Character > 0 {
		lines := strings.Split(text, "\n")
		if int(pos.Line) < len(lines) {
			line := lines[pos.Line]
			if i := int(pos.Character) - 1; i < len(line) {
				if v, ok := grid.CodelValue(rune(line[i])); ok {
					base = grid.Colour(v)
				}
			}
		}
	}

	kind := protocol.CompletionItemKindColor
	items := make([]protocol.CompletionItem, 0, grid.NumColours)
	for c := grid.Colour(0); c < grid.NumColours; c++ {
		ch := string(grid.CodelChar(c))
		detail := c.String()
		if op, ok := compiler.DefaultTable().Lookup(base, c); ok {
			detail = fmt.Sprintf("%s: %s", c, op)
		}
		items = append(items, protocol.CompletionItem{
			Label:      ch,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &ch,
		})
	}
	return items
}

// --- Text helpers ---

// gridLines returns the 0-based document line of every grid row, skipping
// comments and blank lines the way the parser does.
func gridLines(text string) []int {
	var out []int
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(strings.TrimSpace(line), ";") {
			continue
		}
		out = append(out, i)
	}
	return out
}

// codelAt maps a document position to a grid cell.
func codelAt(text string, pos protocol.Position) (row, col int, ok bool) {
	for r, line := range gridLines(text) {
		if line != int(pos.Line) {
			continue
		}
		src := strings.TrimRight(strings.Split(text, "\n")[line], " \t\r")
		if int(pos.Character) >= len(src) {
			return 0, 0, false
		}
		return r, int(pos.Character), true
	}
	return 0, 0, false
}

func boolPtr(b bool) *bool {
	return &b
}
