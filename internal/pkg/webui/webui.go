package webui

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/maps"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/notation"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/report"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
	"github.com/gvallee/go_pt2pt_profiler/pkg/filters"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
	"github.com/gvallee/go_util/pkg/util"
)

// Config represents the configuration of a webUI
type Config struct {
	wg         *sync.WaitGroup
	Port       int
	DatasetDir string
	Name       string
	srv        *http.Server

	mu   sync.Mutex
	data *world.Data
}

const (
	// DefaultPort is the port the webUI listens on unless configured otherwise
	DefaultPort = 8080
)

type indexComponent struct {
	Name   string
	Msgs   uint64
	Volume string
}

type groupSection struct {
	Level  string
	Groups []string
}

type indexPageData struct {
	Name       string
	Dir        string
	Processes  int
	Runtime    string
	WallTime   string
	Components []indexComponent
	Groups     []groupSection
}

type matrixCell struct {
	Value uint64
	Style template.CSS
}

type matrixRow struct {
	Label string
	Cells []matrixCell
}

type matrixPageData struct {
	Dataset     string
	Component   string
	Grouping    string
	Groupings   []string
	Kind        string
	SizeText    string
	TagText     string
	CountText   string
	Warnings    []string
	Unavailable string
	Header      []string
	Rows        []matrixRow
}

type tableRow struct {
	Peer  int
	Cells []uint64
}

type tableData struct {
	Title   string
	Columns []string
	Rows    []tableRow
}

type rankPageData struct {
	Dataset   string
	Component string
	Rank      int
	SizeText  string
	TagText   string
	CountText string
	Warnings  []string
	SizeTable tableData
	TagTable  tableData
}

type reportPageData struct {
	Dataset   string
	Component string
	Content   template.HTML
}

const pageHeader = `<!DOCTYPE html>
<html>
<head>
<title>MPI point-to-point profile</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: right; }
th { background-color: #eee; }
form { margin: 1em 0; }
label { margin-right: 1em; }
.warning { color: #a94442; background-color: #f2dede; padding: 8px; margin: 8px 0; }
nav a { margin-right: 1em; }
</style>
</head>
<body>
<nav><a href="/">Overview</a></nav>
`

const pageFooter = `</body>
</html>
`

const indexBody = `<h1>{{.Name}}</h1>
<h2>Run metadata</h2>
<ul>
<li>Source: {{.Dir}}</li>
<li>Processes: {{.Processes}}</li>
<li>MPI runtime: {{.Runtime}}</li>
<li>Wall time: {{.WallTime}}</li>
</ul>
<h2>Components</h2>
<table>
<tr><th>Component</th><th>Messages</th><th>Data sent</th><th></th></tr>
{{range .Components}}<tr><td><a href="/matrix?component={{.Name}}">{{.Name}}</a></td><td>{{.Msgs}}</td><td>{{.Volume}}</td><td><a href="/report?component={{.Name}}">report</a></td></tr>
{{end}}</table>
{{if .Groups}}<h2>Locality groups</h2>
{{range .Groups}}<h3>{{.Level}}</h3>
<ul>
{{range $i, $g := .Groups}}<li>group {{$i}}: ranks {{$g}}</li>
{{end}}</ul>
{{end}}{{end}}`

const matrixBody = `<h1>{{.Component}} communication matrix</h1>
{{range .Warnings}}<div class="warning">{{.}}</div>
{{end}}<form method="get" action="/matrix">
<input type="hidden" name="component" value="{{.Component}}">
<label>Grouping: <select name="grouping">{{range .Groupings}}<option value="{{.}}"{{if eq . $.Grouping}} selected{{end}}>{{.}}</option>{{end}}</select></label>
<label>Data: <select name="data">
<option value="bytes"{{if eq .Kind "bytes"}} selected{{end}}>bytes sent</option>
<option value="msgs"{{if eq .Kind "msgs"}} selected{{end}}>messages sent</option>
</select></label>
<label>Size filter: <input type="text" name="size" value="{{.SizeText}}"></label>
<label>Tag filter: <input type="text" name="tag" value="{{.TagText}}"></label>
<label>Count filter: <input type="text" name="count" value="{{.CountText}}"></label>
<input type="submit" value="Apply">
</form>
{{if .Unavailable}}<p>{{.Unavailable}}</p>
{{else}}<table>
<tr><th>sender \ receiver</th>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><th>{{.Label}}</th>{{range .Cells}}<td style="{{.Style}}">{{.Value}}</td>{{end}}</tr>
{{end}}</table>
{{end}}<p><a href="/rank?component={{.Component}}&rank=0">per-rank tables</a> <a href="/report?component={{.Component}}">report</a></p>
`

const tableDefine = `{{define "table"}}<h2>{{.Title}}</h2>
{{if .Columns}}<table>
<tr><th>peer</th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><th>{{.Peer}}</th>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{else}}<p>No data recorded.</p>
{{end}}{{end}}`

const rankBody = `<h1>Rank {{.Rank}} tables for {{.Component}}</h1>
{{range .Warnings}}<div class="warning">{{.}}</div>
{{end}}<form method="get" action="/rank">
<input type="hidden" name="component" value="{{.Component}}">
<label>Rank: <input type="text" name="rank" value="{{.Rank}}" size="6"></label>
<label>Size filter: <input type="text" name="size" value="{{.SizeText}}"></label>
<label>Tag filter: <input type="text" name="tag" value="{{.TagText}}"></label>
<label>Count filter: <input type="text" name="count" value="{{.CountText}}"></label>
<input type="submit" value="Apply">
</form>
{{template "table" .SizeTable}}
{{template "table" .TagTable}}
<p><a href="/matrix?component={{.Component}}">communication matrix</a></p>
`

const reportBody = `<h1>{{.Component}} profile report</h1>
<div>{{.Content}}</div>
`

const byeBody = `<p>The profiler interface is shutting down.</p>
`

var (
	indexTemplate  = template.Must(template.New("index").Parse(pageHeader + indexBody + pageFooter))
	matrixTemplate = template.Must(template.New("matrix").Parse(pageHeader + matrixBody + pageFooter))
	rankTemplate   = template.Must(template.New("rank").Parse(tableDefine + pageHeader + rankBody + pageFooter))
	reportTemplate = template.Must(template.New("report").Parse(pageHeader + reportBody + pageFooter))
	byeTemplate    = template.Must(template.New("bye").Parse(pageHeader + byeBody + pageFooter))
)

func (c *Config) loadData() (*world.Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		d, err := world.Open(c.DatasetDir)
		if err != nil {
			return nil, err
		}
		c.data = d
	}
	return c.data, nil
}

// filterParam turns one query parameter of the filter mini language into a
// filter. Empty text means no filtering; text that does not parse degrades
// to a BadFilter plus a warning instead of failing the page.
func filterParam(name string, text string, warnings []string) (filters.Filter, []string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &filters.Unfiltered{}, warnings
	}
	f := filters.ParseOrBad(trimmed)
	if _, bad := f.(*filters.BadFilter); bad {
		warnings = append(warnings, fmt.Sprintf("ignoring invalid %s filter %q", name, trimmed))
	}
	return f, warnings
}

func filterStateEmpty(state *filters.FilterState) bool {
	for _, f := range []filters.Filter{state.Size, state.Tag, state.Count} {
		switch f.(type) {
		case *filters.Unfiltered, *filters.BadFilter:
		default:
			return false
		}
	}
	return true
}

// matrices selects the matrices of one component at one grouping level. An
// empty filter state serves the eagerly aggregated view with the declared
// message counters; any active filter rebuilds the matrices from the
// callsite logs.
func (c *Config) matrices(d *world.Data, component string, g world.Grouping, state *filters.FilterState) (*world.GroupedMatrices, error) {
	cd, err := d.Component(component)
	if err != nil {
		return nil, err
	}
	if filterStateEmpty(state) {
		return cd.ByGrouping(g)
	}
	gm, err := maps.FilteredMatrices(d, component, state)
	if err != nil {
		return nil, err
	}
	if g == world.ByRank {
		return gm, nil
	}
	grouped := gm.Regroup(d.Groups(g))
	if grouped == nil {
		return nil, errors.Lookupf("no data available for grouping %s of component %s", g, component)
	}
	return grouped, nil
}

func cellStyle(v uint64, max uint64) template.CSS {
	if v == 0 || max == 0 {
		return ""
	}
	alpha := 0.15 + 0.65*float64(v)/float64(max)
	return template.CSS(fmt.Sprintf("background-color: rgba(217, 83, 79, %.2f)", alpha))
}

func matrixView(m *world.Matrix, g world.Grouping) ([]string, []matrixRow) {
	labelPrefix := ""
	if g != world.ByRank {
		labelPrefix = "group "
	}
	max := m.Max()
	var header []string
	var rows []matrixRow
	for i := 0; i < m.Size(); i++ {
		header = append(header, fmt.Sprintf("%s%d", labelPrefix, i))
	}
	for sender := 0; sender < m.Size(); sender++ {
		row := matrixRow{Label: fmt.Sprintf("%s%d", labelPrefix, sender)}
		for receiver := 0; receiver < m.Size(); receiver++ {
			v := m.At(sender, receiver)
			row.Cells = append(row.Cells, matrixCell{Value: v, Style: cellStyle(v, max)})
		}
		rows = append(rows, row)
	}
	return header, rows
}

// componentParam resolves the component query parameter, defaulting to the
// first discovered component
func componentParam(d *world.Data, r *http.Request) (string, error) {
	component := r.URL.Query().Get("component")
	if component == "" && len(d.Meta.Components) > 0 {
		component = d.Meta.Components[0]
	}
	_, err := d.Component(component)
	if err != nil {
		return "", err
	}
	return component, nil
}

func (c *Config) indexHandler(w http.ResponseWriter, r *http.Request) {
	d, err := c.loadData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := indexPageData{
		Name:      c.Name,
		Dir:       d.Meta.SourceDir,
		Processes: d.Meta.NumProcesses,
		Runtime:   d.Meta.MPIRuntime,
		WallTime:  d.WallTime.String(),
	}
	for _, name := range d.Meta.Components {
		cd := d.Components[name]
		data.Components = append(data.Components, indexComponent{
			Name:   name,
			Msgs:   cd.TotalMsgsSent,
			Volume: report.FormatBytes(cd.TotalBytesSent),
		})
	}
	for _, g := range []world.Grouping{world.ByNode, world.ByNuma, world.BySocket, world.ByCore} {
		groups := d.Groups(g)
		if groups == nil {
			continue
		}
		section := groupSection{Level: g.String()}
		for _, group := range groups {
			section.Groups = append(section.Groups, notation.CompressIntArray(group))
		}
		data.Groups = append(data.Groups, section)
	}

	err = indexTemplate.Execute(w, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (c *Config) matrixHandler(w http.ResponseWriter, r *http.Request) {
	d, err := c.loadData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	component, err := componentParam(d, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	groupingText := q.Get("grouping")
	if groupingText == "" {
		groupingText = world.ByRank.String()
	}
	g, err := world.ParseGrouping(groupingText)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind := q.Get("data")
	if kind != "msgs" {
		kind = "bytes"
	}

	data := matrixPageData{
		Dataset:   c.Name,
		Component: component,
		Grouping:  g.String(),
		Kind:      kind,
		SizeText:  q.Get("size"),
		TagText:   q.Get("tag"),
		CountText: q.Get("count"),
	}
	for _, grouping := range world.Groupings {
		data.Groupings = append(data.Groupings, grouping.String())
	}

	state := filters.NewFilterState()
	state.Size, data.Warnings = filterParam("size", data.SizeText, data.Warnings)
	state.Tag, data.Warnings = filterParam("tag", data.TagText, data.Warnings)
	state.Count, data.Warnings = filterParam("count", data.CountText, data.Warnings)

	gm, err := c.matrices(d, component, g, state)
	if err != nil {
		if !errors.IsLookup(err) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data.Unavailable = err.Error()
	} else {
		m := gm.BytesSent
		if kind == "msgs" {
			m = gm.MsgsSent
		}
		data.Header, data.Rows = matrixView(m, g)
	}

	err = matrixTemplate.Execute(w, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (c *Config) rankHandler(w http.ResponseWriter, r *http.Request) {
	d, err := c.loadData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	component, err := componentParam(d, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	cd, err := d.Component(component)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	rank := 0
	if rankText := q.Get("rank"); rankText != "" {
		rank, err = strconv.Atoi(rankText)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid rank %q", rankText), http.StatusBadRequest)
			return
		}
	}

	data := rankPageData{
		Dataset:   c.Name,
		Component: component,
		Rank:      rank,
		SizeText:  q.Get("size"),
		TagText:   q.Get("tag"),
		CountText: q.Get("count"),
	}

	state := filters.NewFilterState()
	state.Size, data.Warnings = filterParam("size", data.SizeText, data.Warnings)
	state.Tag, data.Warnings = filterParam("tag", data.TagText, data.Warnings)
	state.Count, data.Warnings = filterParam("count", data.CountText, data.Warnings)

	sd, err := cd.Sizes(rank)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	td, err := cd.Tags(rank)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	sizeMask := maps.SizeColumnMask(sd, state)
	data.SizeTable = tableData{Title: "Message sizes (bytes)"}
	for i, size := range sd.OccurringSizes {
		if !sizeMask[i] {
			continue
		}
		data.SizeTable.Columns = append(data.SizeTable.Columns, strconv.FormatUint(size, 10))
	}
	for pi, peer := range sd.Peers {
		row := tableRow{Peer: peer}
		for i := range sd.OccurringSizes {
			if !sizeMask[i] {
				continue
			}
			row.Cells = append(row.Cells, sd.Data[pi][i])
		}
		data.SizeTable.Rows = append(data.SizeTable.Rows, row)
	}

	tagMask := maps.TagColumnMask(td, state)
	data.TagTable = tableData{Title: "Message tags"}
	for i, tag := range td.OccurringTags {
		if !tagMask[i] {
			continue
		}
		data.TagTable.Columns = append(data.TagTable.Columns, strconv.FormatInt(tag, 10))
	}
	for pi, peer := range td.Peers {
		row := tableRow{Peer: peer}
		for i := range td.OccurringTags {
			if !tagMask[i] {
				continue
			}
			row.Cells = append(row.Cells, td.Data[pi][i])
		}
		data.TagTable.Rows = append(data.TagTable.Rows, row)
	}

	err = rankTemplate.Execute(w, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (c *Config) reportHandler(w http.ResponseWriter, r *http.Request) {
	d, err := c.loadData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	component, err := componentParam(d, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	// The report is generated on first request and kept with the dataset
	reportFile := report.GetFilePath(c.DatasetDir, component)
	if !util.PathExists(reportFile) {
		_, err = report.Generate(d, component, c.DatasetDir)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	mdContent, err := os.ReadFile(reportFile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	htmlContent := markdown.ToHTML(mdContent, nil, nil)

	data := reportPageData{
		Dataset:   c.Name,
		Component: component,
		Content:   template.HTML(htmlContent),
	}
	err = reportTemplate.Execute(w, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (c *Config) stopHandler(w http.ResponseWriter, r *http.Request) {
	err := byeTemplate.Execute(w, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if c.srv != nil {
		// Shut down from another goroutine so this request can complete
		go c.srv.Shutdown(context.TODO())
	}
}

// Stop cleanly terminates a running webUI
func (c *Config) Stop() error {
	err := c.srv.Shutdown(context.TODO())
	if err != nil {
		return err
	}
	c.wg.Wait()
	return nil
}

// RemoteStop remotely terminates a webUI by sending a termination request
func RemoteStop(host string, port string) error {
	client := &http.Client{}
	req, err := http.NewRequest("GET", "http://"+host+":"+port+"/stop", nil)
	if err != nil {
		return err
	}
	req.Close = true
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// Init creates a configuration for the webui that can then be used to
// start/stop a webui
func Init() *Config {
	cfg := new(Config)
	cfg.wg = &sync.WaitGroup{}
	cfg.wg.Add(1)
	cfg.Port = DefaultPort
	return cfg
}

func (c *Config) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", c.indexHandler)
	mux.HandleFunc("/matrix", c.matrixHandler)
	mux.HandleFunc("/rank", c.rankHandler)
	mux.HandleFunc("/report", c.reportHandler)
	mux.HandleFunc("/stop", c.stopHandler)
	return mux
}

// Start instantiates a HTTP server and starts the webUI. This is a
// non-blocking function, meaning the function returns after successfully
// initiating the webUI. To wait for the termination of the webUI, please
// use Wait()
func (c *Config) Start() error {
	_, err := c.loadData()
	if err != nil {
		return err
	}

	c.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.Port),
		Handler: c.routes(),
	}

	go func() {
		defer c.wg.Done()
		c.srv.ListenAndServe()
		fmt.Println("HTTP server is now terminated")
	}()

	return nil
}

// Wait makes the current process wait for the termination of the webUI
func (c *Config) Wait() {
	c.wg.Wait()
}
