package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sync"
	"text/template"
	"time"
)

// AuthStatus defines the different types of auth logging that occur
type AuthStatus string

const (
	// DefaultStandardLoggingFormat defines the default standard log format
	DefaultStandardLoggingFormat = "[{{.Timestamp}}] [{{.File}}] {{.Message}}"
	// DefaultAuthLoggingFormat defines the default auth log format
	DefaultAuthLoggingFormat = "{{.Client}} - {{.Username}} [{{.Timestamp}}] [{{.Status}}] {{.Message}}"

	// AuthSuccess indicates that an auth attempt has succeeded explicitly
	AuthSuccess AuthStatus = "AuthSuccess"
	// AuthFailure indicates that an auth attempt has failed explicitly
	AuthFailure AuthStatus = "AuthFailure"
	// AuthError indicates that an auth attempt has failed due to an error
	AuthError AuthStatus = "AuthError"

	// Llongfile flag to log full file name and line number: /a/b/c/d.go:23
	Llongfile = 1 << iota
	// Lshortfile flag to log final file name element and line number: d.go:23. overrides Llongfile
	Lshortfile
	// LUTC flag to log UTC datetime rather than the local time zone
	LUTC
	// LstdFlags flag for initial values for the logger
	LstdFlags = Lshortfile
)

// These are the containers for all values that are available as variables in
// the logging formats. All values are pre-formatted strings so it is easy to
// use them in the format string.
type stdLogMessageData struct {
	Timestamp,
	File,
	Message string
}

type authLogMessageData struct {
	Client,
	Username,
	Timestamp,
	Status,
	Message string
}

// GetClientFunc returns the apparent "real client IP" as a string.
type GetClientFunc = func(r *http.Request) string

// A Logger represents an active logging object that generates lines of output
// to an io.Writer passed through a formatter. A Logger can be used
// simultaneously from multiple goroutines; it guarantees to serialize access
// to the Writer.
type Logger struct {
	mu             sync.Mutex
	flag           int
	writer         io.Writer
	errWriter      io.Writer
	stdEnabled     bool
	authEnabled    bool
	getClientFunc  GetClientFunc
	stdLogTemplate *template.Template
	authTemplate   *template.Template
}

// New creates a new Logger writing to stdout/stderr.
func New(flag int) *Logger {
	return &Logger{
		writer:         os.Stdout,
		errWriter:      os.Stderr,
		flag:           flag,
		stdEnabled:     true,
		authEnabled:    true,
		getClientFunc:  func(r *http.Request) string { return r.RemoteAddr },
		stdLogTemplate: template.Must(template.New("std-log").Parse(DefaultStandardLoggingFormat)),
		authTemplate:   template.Must(template.New("auth-log").Parse(DefaultAuthLoggingFormat)),
	}
}

var std = New(LstdFlags)

var bufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Output a standard log template with the provided message.
// Writes a final newline at the end of every message.
func (l *Logger) Output(calldepth int, message string) {
	if !l.stdEnabled {
		return
	}
	l.write(l.writer, calldepth+1, message)
}

// ErrorOutput writes a standard log template to the error writer.
func (l *Logger) ErrorOutput(calldepth int, message string) {
	l.write(l.errWriter, calldepth+1, message)
}

func (l *Logger) write(w io.Writer, calldepth int, message string) {
	now := time.Now()
	file := l.GetFileLineString(calldepth + 1)

	l.mu.Lock()
	defer l.mu.Unlock()

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	err := l.stdLogTemplate.Execute(buf, stdLogMessageData{
		Timestamp: l.FormatTimestamp(now),
		File:      file,
		Message:   message,
	})
	if err != nil {
		panic(err)
	}

	buf.WriteRune('\n')
	_, _ = w.Write(buf.Bytes())
}

// PrintAuthf writes auth event details to the logger.
func (l *Logger) PrintAuthf(username string, req *http.Request, status AuthStatus, format string, a ...interface{}) {
	if !l.authEnabled {
		return
	}
	now := time.Now()

	if username == "" {
		username = "-"
	}

	client := l.getClientFunc(req)

	l.mu.Lock()
	defer l.mu.Unlock()

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	err := l.authTemplate.Execute(buf, authLogMessageData{
		Client:    client,
		Username:  username,
		Timestamp: l.FormatTimestamp(now),
		Status:    string(status),
		Message:   fmt.Sprintf(format, a...),
	})
	if err != nil {
		panic(err)
	}

	buf.WriteRune('\n')
	_, _ = l.writer.Write(buf.Bytes())
}

// GetFileLineString will find the caller file and line number taking the
// flags into account.
func (l *Logger) GetFileLineString(calldepth int) string {
	if l.flag&(Lshortfile|Llongfile) == 0 {
		return ""
	}
	_, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		file = "???"
		line = 0
	}

	if l.flag&Lshortfile != 0 {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		file = short
	}

	return fmt.Sprintf("%s:%d", file, line)
}

// FormatTimestamp returns a formatted timestamp.
func (l *Logger) FormatTimestamp(ts time.Time) string {
	if l.flag&LUTC != 0 {
		ts = ts.UTC()
	}
	return ts.Format("2006/01/02 15:04:05")
}

// SetFlags sets the output flags for the standard logger.
func SetFlags(flag int) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.flag = flag
}

// SetOutput sets the output destination for the standard logger.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.writer = w
}

// SetErrOutput sets the error output destination for the standard logger.
func SetErrOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.errWriter = w
}

// SetStandardEnabled enables or disables standard logging.
func SetStandardEnabled(e bool) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.stdEnabled = e
}

// SetAuthEnabled enables or disables auth event logging.
func SetAuthEnabled(e bool) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.authEnabled = e
}

// SetGetClientFunc sets the function which determines the apparent "real
// client IP" used in auth event logs.
func SetGetClientFunc(f GetClientFunc) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.getClientFunc = f
}

// Print calls Output to print to the standard logger.
func Print(v ...interface{}) {
	std.Output(2, fmt.Sprint(v...))
}

// Printf calls Output to print to the standard logger.
func Printf(format string, v ...interface{}) {
	std.Output(2, fmt.Sprintf(format, v...))
}

// Error calls ErrorOutput to print to the standard logger's error writer.
func Error(v ...interface{}) {
	std.ErrorOutput(2, fmt.Sprint(v...))
}

// Errorf calls ErrorOutput to print to the standard logger's error writer.
func Errorf(format string, v ...interface{}) {
	std.ErrorOutput(2, fmt.Sprintf(format, v...))
}

// Fatal is equivalent to Error() followed by a call to os.Exit(1).
func Fatal(v ...interface{}) {
	std.ErrorOutput(2, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf is equivalent to Errorf() followed by a call to os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	std.ErrorOutput(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// PrintAuthf writes auth event details to the standard logger.
func PrintAuthf(username string, req *http.Request, status AuthStatus, format string, a ...interface{}) {
	std.PrintAuthf(username, req, status, format, a...)
}
