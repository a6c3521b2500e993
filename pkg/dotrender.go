package pkg

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/sirupsen/logrus"
)

type dotNode struct {
	ID    string
	Label string
	Attrs dotAttrs
}

type dotEdge struct {
	From  string
	To    string
	Attrs dotAttrs
}

func newDotEdge() *dotEdge {
	return &dotEdge{
		Attrs: dotAttrs{},
	}
}

func (e dotEdge) String() string {
	return fmt.Sprintf("%s -> %s [ %s ]", e.From, e.To, e.Attrs)
}

func (n dotNode) String() string {
	return fmt.Sprintf("%s [ label=%q, %s ]", n.ID, n.Label, n.Attrs)
}

type dotAttrs map[string]string

// List is sorted so the output is stable.
func (p dotAttrs) List() []string {
	var l []string
	for k, v := range p {
		l = append(l, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(l)
	return l
}

func (p dotAttrs) String() string {
	return strings.Join(p.List(), ", ")
}

type dotGraphData struct {
	Title string
	Nodes []*dotNode
	Edges []*dotEdge
}

func toDotId(pid int32) string {
	return "n" + strconv.Itoa(int(pid))
}

// DotRender draws the visible process tree as a graphviz graph.
type DotRender struct {
	engine *graphviz.Graphviz
}

func NewDotRender() *DotRender {
	return &DotRender{engine: graphviz.New()}
}

func (r *DotRender) Close() error {
	return r.engine.Close()
}

func (r *DotRender) toData(rows []VisibleRow) *dotGraphData {
	var nodes []*dotNode
	var edges []*dotEdge

	visible := map[int32]bool{}
	for _, row := range rows {
		visible[row.Node.Pid()] = true
	}

	for _, row := range rows {
		p := row.Node.Process
		node := &dotNode{
			ID:    toDotId(p.Pid),
			Label: fmt.Sprintf("%s\n%d\n%s", p.Name, p.Pid, p.State),
			Attrs: dotAttrs{
				"shape": "box",
			},
		}
		if row.Depth == 0 {
			node.Attrs["style"] = "filled"
			node.Attrs["fillcolor"] = "lightyellow"
		}
		if row.HasToggle && !row.Expanded {
			node.Attrs["peripheries"] = "2"
		}
		nodes = append(nodes, node)

		if !row.Expanded {
			continue
		}
		for _, child := range row.Node.Children {
			if !visible[child.Pid()] {
				continue
			}
			edge := newDotEdge()
			edge.From = toDotId(p.Pid)
			edge.To = toDotId(child.Pid())
			edge.Attrs["color"] = "red"
			edges = append(edges, edge)
		}
	}

	return &dotGraphData{
		Title: fmt.Sprintf("%s (%s)", "psdash", time.Now().Format(time.RFC3339)),
		Nodes: nodes,
		Edges: edges,
	}
}

// Source returns the DOT text for rows.
func (r *DotRender) Source(rows []VisibleRow) ([]byte, error) {
	t := template.New("dot")
	for _, s := range []string{tmplNode, tmplEdge, tmplGraph} {
		if _, err := t.Parse(s); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, r.toData(rows)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders rows in format ("dot", "svg", "png", "jpg") to w.
func (r *DotRender) Write(w io.Writer, rows []VisibleRow, format string) error {
	source, err := r.Source(rows)
	if err != nil {
		return err
	}
	graph, err := graphviz.ParseBytes(source)
	if err != nil {
		return fmt.Errorf("parse dot: %w", err)
	}
	defer graph.Close()

	if err := r.engine.Render(graph, graphviz.Format(format), w); err != nil {
		logrus.WithError(err).WithField("format", format).Errorln("render graph failed")
		return err
	}
	return nil
}
