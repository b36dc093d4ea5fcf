// Package analytics fetches Search Console rows from the backend and shapes
// them into the projections the dashboard renders.
package analytics

// Positions of each dimension inside Row.Keys, as fixed by the backend's
// dimension order: query, page, device, country.
const (
	keyQuery = iota
	keyPage
	keyDevice
	keyCountry
)

// Projection limits.
const (
	TopQueriesLimit = 10
	TableRowsLimit  = 20
)

// UnknownDevice labels clicks from rows that carry no device key.
const UnknownDevice = "UNKNOWN"

// Row is a single Search Console analytics row as returned by the backend.
type Row struct {
	Keys        []string `json:"keys"`
	Clicks      int64    `json:"clicks"`
	Impressions int64    `json:"impressions"`
}

func (r Row) key(i int) string {
	if i < len(r.Keys) {
		return r.Keys[i]
	}
	return ""
}

// Query returns the query text, or "" when the row has no keys.
func (r Row) Query() string { return r.key(keyQuery) }

// Page returns the landing page URL.
func (r Row) Page() string { return r.key(keyPage) }

// Device returns the device category (MOBILE, DESKTOP, TABLET).
func (r Row) Device() string { return r.key(keyDevice) }

// Country returns the ISO country code.
func (r Row) Country() string { return r.key(keyCountry) }

// DeviceTotal is the number of clicks attributed to one device label.
type DeviceTotal struct {
	Device string
	Clicks int64
}

// DeviceTotals is an ordered device -> clicks mapping. Entries appear in the
// order their device label was first seen.
type DeviceTotals []DeviceTotal

// Map returns the totals keyed by device label.
func (d DeviceTotals) Map() map[string]int64 {
	m := make(map[string]int64, len(d))
	for _, t := range d {
		m[t.Device] = t.Clicks
	}
	return m
}

// Total returns the sum of clicks over all devices.
func (d DeviceTotals) Total() int64 {
	var n int64
	for _, t := range d {
		n += t.Clicks
	}
	return n
}

// TopQueries returns the first TopQueriesLimit rows that have at least one
// key, in backend order. Rows are not ranked by clicks.
func TopQueries(rows []Row) []Row {
	top := make([]Row, 0, min(len(rows), TopQueriesLimit))
	for _, r := range rows {
		if len(top) == TopQueriesLimit {
			break
		}
		if len(r.Keys) >= 1 {
			top = append(top, r)
		}
	}
	return top
}

// AggregateDevices sums clicks per device label. Rows without a device key,
// or with an empty one, are counted under UnknownDevice.
func AggregateDevices(rows []Row) DeviceTotals {
	index := make(map[string]int)
	var totals DeviceTotals
	for _, r := range rows {
		device := r.Device()
		if device == "" {
			device = UnknownDevice
		}
		i, ok := index[device]
		if !ok {
			i = len(totals)
			index[device] = i
			totals = append(totals, DeviceTotal{Device: device})
		}
		totals[i].Clicks += r.Clicks
	}
	return totals
}

// TableRows returns the first TableRowsLimit rows in backend order.
func TableRows(rows []Row) []Row {
	n := min(len(rows), TableRowsLimit)
	out := make([]Row, n)
	copy(out, rows[:n])
	return out
}

// Totals returns the summed clicks and impressions over all rows.
func Totals(rows []Row) (clicks, impressions int64) {
	for _, r := range rows {
		clicks += r.Clicks
		impressions += r.Impressions
	}
	return clicks, impressions
}
