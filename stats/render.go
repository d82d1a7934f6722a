package stats

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/zintix-labs/megaodds/errs"
	"gopkg.in/yaml.v3"
)

// Format 報表輸出格式；空字串為終端表格
type Format string

const (
	FormatTable Format = ""
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return FormatTable, errs.Warnf("unknown report format %q", s)
	}
}

// StatReportRender 定義輸出行為
type StatReportRender interface {
	Write(w io.Writer, r *StatReport) error
}

type EstimatorRender interface {
	Write(w io.Writer, e *EstimatorPlayers) error
}

type JsonStatReportRender struct{}

func (*JsonStatReportRender) Write(w io.Writer, r *StatReport) error { return encodeJSON(w, r) }

type YAMLStatReportRender struct{}

func (*YAMLStatReportRender) Write(w io.Writer, r *StatReport) error { return encodeYAML(w, r) }

type JsonEstimatorRender struct{}

func (*JsonEstimatorRender) Write(w io.Writer, e *EstimatorPlayers) error { return encodeJSON(w, e) }

type YAMLEstimatorRender struct{}

func (*YAMLEstimatorRender) Write(w io.Writer, e *EstimatorPlayers) error { return encodeYAML(w, e) }

// StatRender 依格式取得渲染器；FormatTable 回傳 nil
func StatRender(f Format) StatReportRender {
	switch f {
	case FormatJSON:
		return &JsonStatReportRender{}
	case FormatYAML:
		return &YAMLStatReportRender{}
	}
	return nil
}

func EstimatorRenderOf(f Format) EstimatorRender {
	switch f {
	case FormatJSON:
		return &JsonEstimatorRender{}
	case FormatYAML:
		return &YAMLEstimatorRender{}
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// encodeYAML 最內層的陣列（例如分布桶）以 [a, b, c] 單行輸出，外層維持展開
func encodeYAML(w io.Writer, v any) error {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return err
	}
	flowInnerSequences(&node)
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

// flowInnerSequences 回傳 n 底下是否含有 sequence
func flowInnerSequences(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	nested := false
	for _, c := range n.Content {
		if flowInnerSequences(c) {
			nested = true
		}
	}
	if n.Kind != yaml.SequenceNode {
		return nested
	}
	if !nested {
		n.Style = yaml.FlowStyle
	}
	return true
}
