package suite

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// ErrorWithStacktrace is a test failure together with the call stack of the test code that
// reported it.
type ErrorWithStacktrace struct {
	Message    string
	Stacktrace []StacktraceInfo
}

type StacktraceInfo struct {
	FileName string
	Package  string
	Function string
	Line     int
}

func (e ErrorWithStacktrace) Error() string { return e.Message }

func (s StacktraceInfo) String() string {
	packageName := strings.TrimPrefix(s.Package, rootPackageName()+"/")
	return fmt.Sprintf("%s.%s (%s:%d)", packageName, s.Function, s.FileName, s.Line)
}

// stacktraceValue is the form in which a stacktrace is stored in an assertion entry.
func stacktraceValue(stacktrace []StacktraceInfo) ldvalue.Value {
	b := ldvalue.ArrayBuildWithCapacity(len(stacktrace))
	for _, s := range stacktrace {
		b.Add(ldvalue.String(s.String()))
	}
	return b.Build()
}

var errorTraceInMessageRegex = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

// transformError attaches a stacktrace to an error, and strips out any stacktrace that
// testify/assert or testify/require may have already put into the message.
func transformError(err error, stacktrace []StacktraceInfo) error {
	message := err.Error()
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(errorTraceInMessageRegex.ReplaceAllLiteralString(message, ""))
	}
	if len(stacktrace) == 0 {
		return errors.New(message)
	}
	return ErrorWithStacktrace{Message: message, Stacktrace: stacktrace}
}

func currentPackageName() string {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return "?"
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "?"
	}
	packageName, _ := parsePackageAndFunctionName(f.Name())
	return packageName
}

func rootPackageName() string {
	parts := strings.Split(currentPackageName(), "/")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, "/")
}

func getStacktrace(includeSuiteCode bool, helperFns []string) []StacktraceInfo {
	callers := []StacktraceInfo{}
	currentPackage := currentPackageName()
StackLoop:
	for i := 1; ; i++ { // 0 would be getStacktrace itself
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		f := runtime.FuncForPC(pc)
		if f == nil {
			break
		}
		parts := strings.Split(file, "/")
		file = parts[len(parts)-1]

		fullFunctionName := f.Name()
		packageName, functionName := parsePackageAndFunctionName(fullFunctionName)

		if packageName == currentPackage && functionName == "Run" {
			break // suite.Run is the root of every test
		}
		if !includeSuiteCode && packageName == currentPackage {
			continue StackLoop
		}
		for _, helperFn := range helperFns {
			if helperFn == fullFunctionName {
				continue StackLoop
			}
		}

		callers = append(callers, StacktraceInfo{FileName: file, Package: packageName, Function: functionName, Line: line})
	}
	return callers
}

func parsePackageAndFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	firstDotAfterSlash := strings.Index(fullName[lastSlash+1:], ".")
	packageName := fullName[0 : lastSlash+firstDotAfterSlash+1]
	functionName := fullName[len(packageName)+1:]
	return packageName, functionName
}
