package organizer

import (
	"fmt"
	"strings"

	"github.com/russross/blackfriday/v2"
	"github.com/tidwall/gjson"

	"filesorter/internal/models"
)

const (
	outlineTitle = "# 파일 정리 요약\n"
	noneMarker   = "없음"
)

type outline struct {
	lines []string
}

func (o *outline) add(format string, args ...any) {
	o.lines = append(o.lines, fmt.Sprintf(format, args...))
}

// fileList adds a "<label> (N개)" line at indent followed by one line per file.
func (o *outline) fileList(indent, label string, files []string) {
	o.add("%s- %s (%d개)", indent, label, len(files))
	for _, f := range files {
		o.add("%s  - %s", indent, f)
	}
}

// RenderMarkdown turns a classification into a nested outline. It never
// fails: wrong-typed values render as empty, missing sections as "없음".
// Entries appear in the order the classifier emitted them.
func RenderMarkdown(spec models.ClassificationSpec) string {
	root := gjson.ParseBytes(spec)
	o := &outline{}
	o.add(outlineTitle)

	renderSection(o, models.SectionLecture, field(root, models.SectionLecture), renderLecture)
	renderSection(o, models.SectionProject, field(root, models.SectionProject), renderProject)
	renderSection(o, models.SectionPortfolio, field(root, models.SectionPortfolio), renderPortfolio)
	renderSection(o, models.SectionDaily, field(root, models.SectionDaily), renderDaily)

	misc := stringList(field(root, models.SectionMisc))
	o.add("## %s (%d개)", models.SectionMisc, len(misc))
	for _, f := range misc {
		o.add("- %s", f)
	}
	if len(misc) == 0 {
		o.add("- %s", noneMarker)
	}
	o.add("")

	return strings.Join(o.lines, "\n")
}

// RenderHTML converts the outline to HTML.
func RenderHTML(markdown string) string {
	return string(blackfriday.Run([]byte(markdown)))
}

func renderSection(o *outline, title string, section gjson.Result, entry func(*outline, string, gjson.Result)) {
	o.add("## %s", title)
	n := 0
	if section.IsObject() {
		section.ForEach(func(key, value gjson.Result) bool {
			entry(o, key.String(), value)
			n++
			return true
		})
	}
	if n == 0 {
		o.add("- %s", noneMarker)
	}
	o.add("")
}

func renderLecture(o *outline, subject string, detail gjson.Result) {
	o.add("- %s", subject)
	o.fileList("  ", models.LectureMaterials, stringList(field(detail, models.LectureMaterials)))
	o.fileList("  ", models.LectureHomework, stringList(field(detail, models.LectureHomework)))
}

func renderProject(o *outline, name string, details gjson.Result) {
	o.add("- %s", name)
	eachField(details, func(category string, items gjson.Result) {
		if category == models.ProjectDev && items.IsObject() {
			o.add("  - %s", category)
			eachField(items, func(sub string, files gjson.Result) {
				o.fileList("    ", sub, stringList(files))
			})
			return
		}
		o.fileList("  ", category, stringList(items))
	})
}

func renderPortfolio(o *outline, section string, content gjson.Result) {
	o.add("- %s", section)
	eachField(content, func(sub string, files gjson.Result) {
		o.fileList("  ", sub, stringList(files))
	})
}

func renderDaily(o *outline, category string, files gjson.Result) {
	o.fileList("", category, stringList(files))
}

// field looks a key up without gjson path syntax, since model-chosen keys may
// contain dots or wildcards. The last occurrence wins, as in encoding/json.
func field(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	if !obj.IsObject() {
		return found
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
		}
		return true
	})
	return found
}

func eachField(obj gjson.Result, fn func(key string, value gjson.Result)) {
	if !obj.IsObject() {
		return
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		fn(k.String(), v)
		return true
	})
}

// stringList reads a JSON array of file names; anything else is empty.
func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	arr := v.Array()
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, item.String())
	}
	return out
}
