package web

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"

	"github.com/banshee-data/rangeview/internal/colourmap"
	"github.com/banshee-data/rangeview/internal/grid"
	"github.com/banshee-data/rangeview/internal/render/plots"
)

// rampHex is the near-to-far palette as CSS colours for echarts visual maps.
func rampHex(n int) []string {
	cs := colourmap.NewRamp(n).Colors()
	out := make([]string, len(cs))
	for i, c := range cs {
		cc, _ := colorful.MakeColor(c)
		out[i] = cc.Hex()
	}
	return out
}

func (s *Server) initOpts(title string) opts.Initialization {
	return opts.Initialization{
		PageTitle:  title,
		Theme:      "dark",
		Width:      "900px",
		Height:     "900px",
		AssetsHost: s.src.AssetsHost,
	}
}

func writeChart(w http.ResponseWriter, c interface{ Render(w io.Writer) error }) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleScan renders the occupied bins as a polar->XY scatter coloured by
// distance.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	b := s.src.Bins
	entries := b.Snapshot()
	maxRange := b.MaxRange()

	data := make([]opts.ScatterData, 0, len(entries))
	for _, e := range entries {
		x, y := e.Cartesian()
		data = append(data, opts.ScatterData{
			Name:  strconv.Itoa(e.Degree) + "°",
			Value: []interface{}{x, y, e.DistanceMM},
		})
	}

	subtitle := fmt.Sprintf("bins=%d updates=%d", len(entries), b.Updates())
	if z := s.src.Zone; z != nil {
		subtitle += fmt.Sprintf(" zone x[%g,%g] y[%g,%g] intrusions=%d",
			z.XMin, z.XMax, z.YMin, z.YMax, b.Intrusions(*z))
	}

	pad := maxRange * 1.05
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(s.initOpts("ToF scan")),
		charts.WithTitleOpts(opts.Title{Title: "ToF scan", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (mm)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxRange),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: rampHex(10)},
		}),
	)
	scatter.AddSeries("bins", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	writeChart(w, scatter)
}

func gridAxis(size int) []string {
	out := make([]string, size)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func gridSubtitle(st grid.Stats) string {
	return fmt.Sprintf("frame=%d fps=%.1f valid=%d/%d latency=%.0fms",
		st.FrameNumber, st.FPS, st.Valid, st.Total, st.LatencyMS)
}

// handleGridHeatmap renders the latest frame as a labelled heatmap; invalid
// cells are left empty.
func (s *Server) handleGridHeatmap(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Grid.Snapshot()

	data := make([]opts.HeatMapData, 0, snap.Size*snap.Size)
	for row := 0; row < snap.Size; row++ {
		for col := 0; col < snap.Size; col++ {
			var v interface{} = "-"
			if d, ok := snap.At(row, col); ok {
				v = int(d)
			}
			// echarts counts category rows from the bottom
			data = append(data, opts.HeatMapData{Value: [3]interface{}{col, snap.Size - 1 - row, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(s.initOpts("Grid heatmap")),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%dx%d grid", snap.Size, snap.Size), Subtitle: gridSubtitle(snap.Stats)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: reversed(gridAxis(snap.Size))}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        grid.MinValidMM,
			Max:        grid.MaxValidMM,
			InRange:    &opts.VisualMapInRange{Color: rampHex(10)},
		}),
	)
	hm.SetXAxis(gridAxis(snap.Size)).
		AddSeries("distance", data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
	writeChart(w, hm)
}

// handleGrid3D renders the point cloud in an interactive 3D scatter.
func (s *Server) handleGrid3D(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Grid.Snapshot()
	cloud := snap.PointCloud()

	data := make([]opts.Chart3DData, 0, len(cloud))
	for _, p := range cloud {
		data = append(data, opts.Chart3DData{
			Name:  fmt.Sprintf("r%d c%d", p.Row, p.Col),
			Value: []interface{}{p.Pos.X, p.Pos.Y, p.Pos.Z},
		})
	}

	sc := charts.NewScatter3D()
	sc.SetGlobalOptions(
		charts.WithInitializationOpts(s.initOpts("Grid point cloud")),
		charts.WithTitleOpts(opts.Title{Title: "Point cloud", Subtitle: gridSubtitle(snap.Stats)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X (mm)", Min: -600, Max: 600}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y (mm)", Min: -600, Max: 600}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z (mm)", Min: grid.MinValidMM, Max: grid.MaxValidMM}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        grid.MinValidMM,
			Max:        grid.MaxValidMM,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: rampHex(10)},
		}),
	)
	sc.AddSeries("cells", data)
	writeChart(w, sc)
}

// handleSnapshot renders the current state as a PNG. Query param view
// selects scan, heatmap or 3d; the default follows what is available.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "scan"
		if s.src.Bins == nil {
			view = "heatmap"
		}
	}

	var (
		p   *plot.Plot
		err error
	)
	switch {
	case view == "scan" && s.src.Bins != nil:
		p, err = plots.ScanPlot(s.src.Bins.Snapshot(), s.src.Bins.MaxRange(), s.src.Zone)
	case view == "heatmap" && s.src.Grid != nil:
		p, err = plots.GridHeatmap(s.src.Grid.Snapshot())
	case view == "3d" && s.src.Grid != nil:
		p, err = plots.GridCloud(s.src.Grid.Snapshot(), grid.DefaultElevationDeg, grid.DefaultAzimuthDeg)
	default:
		writeJSONError(w, http.StatusNotFound, "no such view: "+html.EscapeString(view))
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to plot: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := plots.WritePNG(&buf, p, 0); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render png: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
