package pkg

const tmplEdge = `{{define "edge" -}}
    {{printf "%s" .}}
{{- end}}`

const tmplNode = `{{define "node" -}}
    {{printf "%s" .}}
{{- end}}`

const tmplGraph = `digraph psdash {
    label="{{.Title}}";
    labeljust="l";
    fontname="Arial";
    fontsize="14";
    rankdir="LR";
    bgcolor="white";
    style="solid";
    penwidth="0.5";
    pad="0.0";
    node [fontname="Verdana" penwidth="1.0" margin="0.05,0.0"];
	{{range .Nodes}}
	{{template "node" .}}
	{{- end}}
    {{- range .Edges}}
    {{template "edge" .}}
    {{- end}}
}`
