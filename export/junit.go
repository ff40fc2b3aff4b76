package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/multitest/report-harness/framework/helpers"
	"github.com/multitest/report-harness/report"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Name    string              `xml:"name,attr"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Errors     int                `xml:"errors,attr"`
	Skipped    int                `xml:"skipped,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	XMLName     xml.Name             `xml:"testcase"`
	Classname   string               `xml:"classname,attr"`
	Name        string               `xml:"name,attr"`
	Time        string               `xml:"time,attr"`
	SkipMessage *jUnitXMLSkipMessage `xml:"skipped,omitempty"`
	Failure     *jUnitXMLFailure     `xml:"failure,omitempty"`
	Error       *jUnitXMLFailure     `xml:"error,omitempty"`
	SystemOut   string               `xml:"system-out,omitempty"`
}

type jUnitXMLSkipMessage struct {
	Message string `xml:"message,attr"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

// WriteJUnit writes r as JUnit XML. Every suite of every multitest becomes a testsuite
// element, and every test case below it a testcase element. Cases that are neither passed nor
// failed are reported as skipped, with their status as the message.
func WriteJUnit(w io.Writer, r *report.Report) error {
	doc := jUnitXMLDocument{Name: r.Name()}

	var properties []jUnitXMLProperty
	for _, k := range helpers.Sorted(maps.Keys(r.Meta)) {
		properties = append(properties, jUnitXMLProperty{Name: "report.meta." + k, Value: r.Meta[k]})
	}

	for multitest := range r.Children() {
		mt, ok := multitest.(*report.GroupReport)
		if !ok {
			doc.Suites = append(doc.Suites, jUnitSuite(r.Name(), collectCases(nil, multitest, nil), properties))
			continue
		}
		var looseCases []suiteCase
		for child := range mt.Children() {
			if c, isCase := child.(*report.CaseReport); isCase {
				looseCases = collectCases(nil, c, looseCases)
				continue
			}
			name := mt.Name() + "/" + nodeName(child)
			doc.Suites = append(doc.Suites, jUnitSuite(name, collectCases(nil, child, nil), properties))
		}
		if len(looseCases) != 0 {
			doc.Suites = append(doc.Suites, jUnitSuite(mt.Name(), looseCases, properties))
		}
	}

	bytes, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	bytes = append(bytes, '\n')
	_, err = w.Write(bytes)
	return err
}

type suiteCase struct {
	name string
	c    *report.CaseReport
}

// collectCases appends the cases at or below n, named by their path below n. A group passed
// as n contributes its descendants but not its own name.
func collectCases(prefix []string, n report.Node, out []suiteCase) []suiteCase {
	g, ok := n.(*report.GroupReport)
	if !ok {
		return append(out, suiteCase{name: strings.Join(append(slices.Clone(prefix), nodeName(n)), "/"),
			c: n.(*report.CaseReport)})
	}
	for child := range g.Children() {
		if sub, isGroup := child.(*report.GroupReport); isGroup {
			out = collectCases(append(slices.Clone(prefix), nodeName(sub)), sub, out)
		} else {
			out = collectCases(prefix, child, out)
		}
	}
	return out
}

func nodeName(n report.Node) string {
	if n.Name() != "" {
		return n.Name()
	}
	return string(n.UID())
}

func jUnitSuite(name string, cases []suiteCase, properties []jUnitXMLProperty) jUnitXMLTestSuite {
	suite := jUnitXMLTestSuite{
		Name:       name,
		Properties: properties,
	}
	className := strings.ReplaceAll(name, "/", ".")
	suiteTotalDuration := time.Duration(0)
	for _, sc := range cases {
		c := sc.c
		duration := c.Timer()[report.TimerRun].Duration()
		suiteTotalDuration += duration
		testCase := jUnitXMLTestCase{
			Classname: className,
			Name:      sc.name,
			Time:      jUnitDurationString(duration),
		}
		suite.Tests++
		switch status := c.Status(); {
		case status == report.StatusPassed:
		case status == report.StatusFailed:
			suite.Failures++
			testCase.Failure = jUnitFailure(c, status)
		case status.IsFailure():
			suite.Errors++
			testCase.Error = jUnitFailure(c, status)
		default:
			suite.Skipped++
			testCase.SkipMessage = &jUnitXMLSkipMessage{Message: skipMessage(c, status)}
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}
	suite.Time = jUnitDurationString(suiteTotalDuration)
	return suite
}

func jUnitFailure(c *report.CaseReport, status report.Status) *jUnitXMLFailure {
	var messages []string
	var output []string
	for _, e := range c.Entries() {
		switch entry := e.(type) {
		case report.AssertionEntry:
			if entry.Passed {
				continue
			}
			message := entry.Description
			if frames := stacktrace(entry); len(frames) != 0 {
				message += "\n  Stacktrace:"
				for _, s := range frames {
					message += "\n    " + s
				}
			}
			messages = append(messages, message)
		case report.LogEntry:
			output = append(output, entry.Message)
		}
	}
	if len(messages) == 0 {
		messages = slices.Clone(output)
	}
	return &jUnitXMLFailure{
		Message:  strings.Join(messages, "\n"),
		Type:     status.String(),
		Contents: strings.Join(output, "\n"),
	}
}

func skipMessage(c *report.CaseReport, status report.Status) string {
	if status == report.StatusSkipped {
		for _, e := range c.Entries() {
			if l, ok := e.(report.LogEntry); ok && l.Message != "" {
				return l.Message
			}
		}
	}
	return status.String()
}

func jUnitDurationString(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
