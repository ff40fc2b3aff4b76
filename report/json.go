package report

import (
	"fmt"
	"time"

	"github.com/multitest/report-harness/framework/opt"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// The interchange form is a nested JSON object. Groups and cases are told apart by "type",
// and the children of a group and the entries of a case both live in "entries". Fields that
// are derived from others ("status" of a group, "counter", "tags_index") are written for the
// benefit of consumers and ignored when reading.

// MarshalJSON writes the whole tree in its interchange form.
func (r *Report) MarshalJSON() ([]byte, error) { return marshalWith(r.WriteToJSONWriter) }

func (g *GroupReport) MarshalJSON() ([]byte, error) { return marshalWith(g.WriteToJSONWriter) }

func (c *CaseReport) MarshalJSON() ([]byte, error) { return marshalWith(c.WriteToJSONWriter) }

func marshalWith(fn func(*jwriter.Writer)) ([]byte, error) {
	w := jwriter.NewWriter()
	fn(&w)
	return w.Bytes(), w.Error()
}

// WriteToJSONWriter writes the report, including plan metadata, to a streaming writer.
func (r *Report) WriteToJSONWriter(w *jwriter.Writer) {
	obj := w.Object()
	r.GroupReport.writeFields(w, &obj)
	writeStringMap(obj.Name("meta"), r.Meta)
	writeStringMap(obj.Name("attributes"), r.Attributes)
	obj.End()
}

func (g *GroupReport) WriteToJSONWriter(w *jwriter.Writer) {
	obj := w.Object()
	g.writeFields(w, &obj)
	obj.End()
}

func (g *GroupReport) writeFields(w *jwriter.Writer, obj *jwriter.ObjectState) {
	obj.Name("type").String(KindGroup)
	obj.Name("uid").String(string(g.uid))
	obj.Name("name").String(g.name)
	obj.Maybe("description", g.description != "").String(g.description)
	obj.Name("category").String(string(g.category))
	obj.Name("status").String(string(g.Status()))
	writeOverride(obj.Name("status_override"), g.override)
	obj.Name("runtime_status").String(string(g.RuntimeStatus()))
	writeTags(obj.Name("tags"), g.tags)
	writeTagIndex(obj.Name("tags_index"), g.TagIndex())
	writeCounter(obj.Name("counter"), g.Counter())
	writeTimer(obj.Name("timer"), g.timer)
	if len(g.logs) > 0 {
		logs := obj.Name("logs").Array()
		for _, l := range g.logs {
			writeLogRecord(w, l)
		}
		logs.End()
	}
	children := obj.Name("entries").Array()
	for _, c := range g.children {
		switch n := c.(type) {
		case *GroupReport:
			n.WriteToJSONWriter(w)
		case *CaseReport:
			n.WriteToJSONWriter(w)
		}
	}
	children.End()
}

func (c *CaseReport) WriteToJSONWriter(w *jwriter.Writer) {
	obj := w.Object()
	obj.Name("type").String(KindCase)
	obj.Name("uid").String(string(c.uid))
	obj.Name("name").String(c.name)
	obj.Maybe("description", c.description != "").String(c.description)
	obj.Name("status").String(string(c.Status()))
	writeOverride(obj.Name("status_override"), c.override)
	obj.Name("runtime_status").String(string(c.runtime))
	writeTags(obj.Name("tags"), c.tags)
	writeTimer(obj.Name("timer"), c.timer)
	entries := obj.Name("entries").Array()
	for _, e := range c.entries {
		writeEntry(w, e)
	}
	entries.End()
	obj.End()
}

func writeEntry(w *jwriter.Writer, e Entry) {
	obj := w.Object()
	obj.Name("type").String(e.EntryType())
	switch entry := e.(type) {
	case AssertionEntry:
		obj.Maybe("description", entry.Description != "").String(entry.Description)
		obj.Name("passed").Bool(entry.Passed)
		if !entry.Content.IsNull() {
			entry.Content.WriteToJSONWriter(obj.Name("content"))
		}
	case LogEntry:
		obj.Maybe("description", entry.Description != "").String(entry.Description)
		obj.Name("message").String(entry.Message)
		obj.Maybe("level", entry.Level != "").String(entry.Level)
	case AttachmentEntry:
		obj.Maybe("description", entry.Description != "").String(entry.Description)
		obj.Name("source_path").String(entry.SourcePath)
		obj.Name("orig_filename").String(entry.OrigFilename)
		obj.Name("filesize").Int(int(entry.FileSize))
		obj.Maybe("hash", entry.Hash != "").String(entry.Hash)
	}
	obj.End()
}

func writeOverride(w *jwriter.Writer, override opt.Maybe[Status]) {
	if override.IsDefined() {
		w.String(string(override.Value()))
	} else {
		w.Null()
	}
}

func writeTags(w *jwriter.Writer, tags Tags) {
	obj := w.Object()
	for _, category := range tags.Categories() {
		values := obj.Name(category).Array()
		for _, v := range tags[category] {
			w.String(v)
		}
		values.End()
	}
	obj.End()
}

func writeTagIndex(w *jwriter.Writer, ti TagIndex) {
	obj := w.Object()
	categories := maps.Keys(ti)
	slices.Sort(categories)
	for _, category := range categories {
		byValue := obj.Name(category).Object()
		values := maps.Keys(ti[category])
		slices.Sort(values)
		for _, v := range values {
			uids := byValue.Name(v).Array()
			for _, u := range ti[category][v] {
				w.String(string(u))
			}
			uids.End()
		}
		byValue.End()
	}
	obj.End()
}

func writeCounter(w *jwriter.Writer, c Counter) {
	obj := w.Object()
	for _, s := range statusPrecedence {
		obj.Maybe(string(s), c[s] != 0).Int(c[s])
	}
	obj.Name("total").Int(c.Total())
	obj.End()
}

func writeTimer(w *jwriter.Writer, t Timer) {
	obj := w.Object()
	for _, key := range t.Keys() {
		iv := obj.Name(key).Object()
		iv.Name("start").String(formatTime(t[key].Start))
		iv.Maybe("end", !t[key].End.IsZero()).String(formatTime(t[key].End))
		iv.End()
	}
	obj.End()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func writeLogRecord(w *jwriter.Writer, r LogRecord) {
	obj := w.Object()
	obj.Name("time").String(formatTime(r.Time))
	obj.Maybe("level", r.Level != "").String(r.Level)
	obj.Name("message").String(r.Message)
	obj.End()
}

func writeStringMap(w *jwriter.Writer, m map[string]string) {
	obj := w.Object()
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		obj.Name(k).String(m[k])
	}
	obj.End()
}

// Parse reads a report in its interchange form.
func Parse(data []byte) (*Report, error) {
	v, err := parseValue(data)
	if err != nil {
		return nil, err
	}
	return ReportFromValue(v)
}

// ParseNode reads a single group or case in its interchange form.
func ParseNode(data []byte) (Node, error) {
	v, err := parseValue(data)
	if err != nil {
		return nil, err
	}
	return NodeFromValue(v)
}

func (r *Report) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func (g *GroupReport) UnmarshalJSON(data []byte) error {
	v, err := parseValue(data)
	if err != nil {
		return err
	}
	parsed, err := groupFromValue(v, nil)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}

func (c *CaseReport) UnmarshalJSON(data []byte) error {
	v, err := parseValue(data)
	if err != nil {
		return err
	}
	parsed, err := caseFromValue(v, nil)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

func parseValue(data []byte) (ldvalue.Value, error) {
	reader := jreader.NewReader(data)
	var v ldvalue.Value
	v.ReadFromJSONReader(&reader)
	if reader.Error() != nil {
		return ldvalue.Null(), fmt.Errorf("malformed report JSON: %w", reader.Error())
	}
	if v.Type() != ldvalue.ObjectType {
		return ldvalue.Null(), fmt.Errorf("report JSON must be an object, got %s", v.Type())
	}
	return v, nil
}

// ReportFromValue converts an already-parsed JSON value into a report. The document may
// describe a plan, or a single multitest, which is then wrapped in a plan of the same name.
func ReportFromValue(v ldvalue.Value) (*Report, error) {
	g, err := groupFromValue(v, nil)
	if err != nil {
		return nil, err
	}
	var r *Report
	if g.category == CategoryTestPlan {
		r = &Report{GroupReport: *g}
	} else {
		r = New(g.name)
		r.appendChild(g)
	}
	if r.Meta, err = stringMapFromValue(v.GetByKey("meta"), "meta"); err != nil {
		return nil, err
	}
	if r.Attributes, err = stringMapFromValue(v.GetByKey("attributes"), "attributes"); err != nil {
		return nil, err
	}
	return r, nil
}

// NodeFromValue converts an already-parsed JSON value into a group or a case.
func NodeFromValue(v ldvalue.Value) (Node, error) {
	return nodeFromValue(v, nil)
}

func nodeFromValue(v ldvalue.Value, parent Path) (Node, error) {
	if v.Type() != ldvalue.ObjectType {
		return nil, fmt.Errorf("%s: report node must be an object, got %s", describe(parent), v.Type())
	}
	switch kind := v.GetByKey("type").StringValue(); kind {
	case KindCase:
		return caseFromValue(v, parent)
	case KindGroup, "":
		return groupFromValue(v, parent)
	default:
		return nil, fmt.Errorf("%s: unknown report node type %q", describe(parent), kind)
	}
}

func describe(path Path) string {
	if len(path) == 0 {
		return "report"
	}
	return fmt.Sprintf("report node %q", path.String())
}

type nodeHeader struct {
	uid         UID
	name        string
	description string
	override    opt.Maybe[Status]
	tags        Tags
	timer       Timer
}

func headerFromValue(v ldvalue.Value, parent Path) (nodeHeader, Path, error) {
	var h nodeHeader
	uid, err := uidFromValue(v.GetByKey("uid"))
	if err != nil {
		return h, parent, fmt.Errorf("%s: %w", describe(parent), err)
	}
	h.name = v.GetByKey("name").StringValue()
	if uid == "" {
		uid = UID(h.name)
	}
	if uid == "" {
		return h, parent, fmt.Errorf("%s: node has neither uid nor name", describe(parent))
	}
	h.uid = uid
	path := parent.Plus(uid)
	h.description = v.GetByKey("description").StringValue()
	if s := v.GetByKey("status_override"); !s.IsNull() {
		st, err := ParseStatus(s.StringValue())
		if err != nil {
			return h, path, fmt.Errorf("%s: %w", describe(path), err)
		}
		h.override = opt.Some(st)
	}
	if h.tags, err = tagsFromValue(v.GetByKey("tags")); err != nil {
		return h, path, fmt.Errorf("%s: %w", describe(path), err)
	}
	if h.timer, err = timerFromValue(v.GetByKey("timer")); err != nil {
		return h, path, fmt.Errorf("%s: %w", describe(path), err)
	}
	return h, path, nil
}

func uidFromValue(v ldvalue.Value) (UID, error) {
	switch v.Type() {
	case ldvalue.NullType:
		return "", nil
	case ldvalue.StringType:
		return UID(v.StringValue()), nil
	case ldvalue.NumberType:
		return UID(v.JSONString()), nil
	default:
		return "", fmt.Errorf("uid must be a string or a number, got %s", v.Type())
	}
}

func groupFromValue(v ldvalue.Value, parent Path) (*GroupReport, error) {
	h, path, err := headerFromValue(v, parent)
	if err != nil {
		return nil, err
	}
	category := Category(v.GetByKey("category").StringValue())
	if category == "" {
		return nil, fmt.Errorf("%s: group has no category", describe(path))
	}
	g := NewGroup(h.uid, h.name, category)
	g.description, g.override, g.tags, g.timer = h.description, h.override, h.tags, h.timer
	logs := v.GetByKey("logs")
	for i := 0; i < logs.Count(); i++ {
		l := logs.GetByIndex(i)
		t, err := timeFromValue(l.GetByKey("time"))
		if err != nil {
			return nil, fmt.Errorf("%s: log record %d: %w", describe(path), i, err)
		}
		g.logs = append(g.logs, LogRecord{
			Time:    t,
			Level:   l.GetByKey("level").StringValue(),
			Message: l.GetByKey("message").StringValue(),
		})
	}
	children := v.GetByKey("entries")
	for i := 0; i < children.Count(); i++ {
		child, err := nodeFromValue(children.GetByIndex(i), path)
		if err != nil {
			return nil, err
		}
		if g.Has(child.UID()) {
			return nil, fmt.Errorf("%s: %w", describe(path), mismatch(path.Plus(child.UID()), "duplicate child UID"))
		}
		g.appendChild(child)
	}
	return g, nil
}

func caseFromValue(v ldvalue.Value, parent Path) (*CaseReport, error) {
	h, path, err := headerFromValue(v, parent)
	if err != nil {
		return nil, err
	}
	c := NewCase(h.uid, h.name)
	c.description, c.override, c.tags, c.timer = h.description, h.override, h.tags, h.timer
	if rs := v.GetByKey("runtime_status"); !rs.IsNull() {
		if c.runtime, err = ParseRuntimeStatus(rs.StringValue()); err != nil {
			return nil, fmt.Errorf("%s: %w", describe(path), err)
		}
	}
	entries := v.GetByKey("entries")
	for i := 0; i < entries.Count(); i++ {
		e, err := entryFromValue(entries.GetByIndex(i))
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", describe(path), i, err)
		}
		c.entries = append(c.entries, e)
	}
	// The written status only matters where nothing else determines it, which is a case with
	// no entries that has not finished, and it is kept there as the baseline.
	if s := v.GetByKey("status"); !s.IsNull() {
		st, err := ParseStatus(s.StringValue())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", describe(path), err)
		}
		c.baseline = st
		if c.Status() != st {
			c.baseline = StatusUnknown
		}
	}
	return c, nil
}

var assertionKeys = []string{"type", "description", "passed", "content"}

func entryFromValue(v ldvalue.Value) (Entry, error) {
	if v.Type() != ldvalue.ObjectType {
		return nil, fmt.Errorf("entry must be an object, got %s", v.Type())
	}
	entryType := v.GetByKey("type").StringValue()
	description := v.GetByKey("description").StringValue()
	if entryType == EntryTypeAttachment {
		return AttachmentEntry{
			Description:  description,
			SourcePath:   v.GetByKey("source_path").StringValue(),
			OrigFilename: v.GetByKey("orig_filename").StringValue(),
			FileSize:     int64(v.GetByKey("filesize").Float64Value()),
			Hash:         v.GetByKey("hash").StringValue(),
		}, nil
	}
	if passed := v.GetByKey("passed"); passed.Type() == ldvalue.BoolType {
		content := v.GetByKey("content")
		if content.IsNull() {
			// Entries from other producers keep their details at the top level.
			b := ldvalue.ObjectBuild()
			extra := 0
			for k, fv := range v.AsValueMap().AsMap() {
				if !slices.Contains(assertionKeys, k) {
					b.Set(k, fv)
					extra++
				}
			}
			if extra > 0 {
				content = b.Build()
			}
		}
		return AssertionEntry{Type: entryType, Description: description, Passed: passed.BoolValue(),
			Content: content}, nil
	}
	return LogEntry{
		Type:        entryType,
		Description: description,
		Message:     v.GetByKey("message").StringValue(),
		Level:       v.GetByKey("level").StringValue(),
	}, nil
}

func tagsFromValue(v ldvalue.Value) (Tags, error) {
	tags := make(Tags)
	switch v.Type() {
	case ldvalue.NullType:
	case ldvalue.ObjectType:
		for category, values := range v.AsValueMap().AsMap() {
			switch values.Type() {
			case ldvalue.StringType:
				tags.Add(category, values.StringValue())
			case ldvalue.ArrayType:
				for i := 0; i < values.Count(); i++ {
					tags.Add(category, values.GetByIndex(i).StringValue())
				}
			default:
				return nil, fmt.Errorf("tag category %q must be a string or an array", category)
			}
		}
	default:
		return nil, fmt.Errorf("tags must be an object, got %s", v.Type())
	}
	return tags, nil
}

func timerFromValue(v ldvalue.Value) (Timer, error) {
	timer := make(Timer)
	if v.Type() != ldvalue.ObjectType {
		return timer, nil
	}
	for key, iv := range v.AsValueMap().AsMap() {
		start, err := timeFromValue(iv.GetByKey("start"))
		if err != nil {
			return nil, fmt.Errorf("timer %q: %w", key, err)
		}
		end, err := timeFromValue(iv.GetByKey("end"))
		if err != nil {
			return nil, fmt.Errorf("timer %q: %w", key, err)
		}
		timer[key] = Interval{Start: start, End: end}
	}
	return timer, nil
}

func timeFromValue(v ldvalue.Value) (time.Time, error) {
	if v.IsNull() {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v.StringValue())
}

func stringMapFromValue(v ldvalue.Value, field string) (map[string]string, error) {
	ret := make(map[string]string)
	switch v.Type() {
	case ldvalue.NullType:
	case ldvalue.ObjectType:
		for k, s := range v.AsValueMap().AsMap() {
			if s.Type() == ldvalue.StringType {
				ret[k] = s.StringValue()
			} else {
				ret[k] = s.JSONString()
			}
		}
	default:
		return nil, fmt.Errorf("%s must be an object, got %s", field, v.Type())
	}
	return ret, nil
}
