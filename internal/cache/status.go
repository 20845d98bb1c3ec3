// Copyright (c) 2025 The splatview Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cache

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"sort"
	"strconv"

	sigar "github.com/cloudfoundry/gosigar"

	log "github.com/golang/glog"

	"github.com/opensplat/splatview/internal/core"
	"github.com/opensplat/splatview/internal/scene"
)

const statusTemplateStr = `
<!doctype html>
<html lang="en">
<head>
  <title>splatview cache status</title>
  <style>
    table.status {
      border-collapse: collapse;
    }
    table.status td {
      border: 1px solid #DDD;
      text-align: left;
      padding: 4px 8px;
    }
    table.status th {
      border: 1px solid #DDD;
      text-align: left;
      padding: 8px;
      background-color: #009900;
      color: white;
    }
    table.status tr:nth-child(even) {background-color: #F2F2F2;}
  </style>
</head>

<body>

<h3>splatview cache</h3>

<table>
  <tr><td>Entries:</td><td>{{len .Entries}}</td></tr>
  <tr><td>In-flight decodes:</td><td>{{.Pending}}</td></tr>
  <tr><td>Process resident memory:</td><td>{{.ResidentMB}} MB</td></tr>
</table>

<p></p>

<table class="status">
  <tr>
    <th>ID</th>
    <th>Name</th>
    <th>Format</th>
    <th>Points</th>
    <th>Visible</th>
    <th>Camera</th>
    <th>Focus</th>
  </tr>
  {{range .Entries}}
  <tr>
    <td>{{.ID}}</td>
    <td>{{.Name}}</td>
    <td>{{.Format}}</td>
    <td>{{.Points}}</td>
    <td>{{.Visible}}</td>
    <td>{{.HasCamera}}</td>
    <td>{{.Focus}}</td>
  </tr>
  {{end}}
</table>

</body>
</html>
`

var statusTemplate = template.Must(template.New("status").Parse(statusTemplateStr))

// EntryInfo is a point-in-time copy of one entry's displayable state.
type EntryInfo struct {
	ID        core.AssetID
	Name      string
	Format    string
	Points    int
	Visible   bool
	HasCamera bool
	Focus     string
}

type statusData struct {
	Entries    []EntryInfo
	Pending    int
	ResidentMB uint64
}

// Snapshot returns a copy of the cache's displayable state, sorted by id.
func (c *Cache) Snapshot() []EntryInfo {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]EntryInfo, 0, len(c.entries))
	for _, e := range c.entries {
		info := EntryInfo{
			ID:        e.ID,
			Name:      e.Ref.Name,
			Format:    e.FormatLabel,
			Visible:   e.Visible,
			HasCamera: e.Camera != nil,
			Focus:     "-",
		}
		if e.FocusOverride != nil {
			info.Focus = strconv.FormatFloat(*e.FocusOverride, 'g', 4, 64)
		}
		if cloud, ok := e.Resource.(*scene.SplatCloud); ok {
			info.Points = cloud.Count()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StatusHandler serves the cache status page.
func (c *Cache) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.lock.Lock()
		pending := len(c.pending)
		c.lock.Unlock()

		mem := sigar.ProcMem{}
		if err := mem.Get(os.Getpid()); err != nil {
			log.Errorf("status: reading process memory: %v", err)
		}

		data := statusData{
			Entries:    c.Snapshot(),
			Pending:    pending,
			ResidentMB: mem.Resident / (1 << 20),
		}
		var buf bytes.Buffer
		if err := statusTemplate.Execute(&buf, data); err != nil {
			log.Errorf("status: rendering template: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Write(buf.Bytes())
	})
}
