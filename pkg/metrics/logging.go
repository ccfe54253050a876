package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// LogForwarder is a logrus.Formatter that also forwards each entry to New
// Relic. Unlike the stock nrlogrus formatter, entry fields are kept and
// appended to the forwarded message.
type LogForwarder struct {
	app   *newrelic.Application
	inner logrus.Formatter
}

// NewLogForwarder wraps inner. With a nil app, entries are only formatted.
func NewLogForwarder(app *newrelic.Application, inner logrus.Formatter) *LogForwarder {
	return &LogForwarder{
		app:   app,
		inner: inner,
	}
}

// Format implements logrus.Formatter
func (f *LogForwarder) Format(e *logrus.Entry) ([]byte, error) {
	formatted, err := f.inner.Format(e)
	if err != nil {
		return nil, err
	}

	if f.app == nil {
		return formatted, nil
	}

	data := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  forwardedMessage(e),
	}

	b := bytes.NewBuffer(bytes.TrimRight(formatted, "\n"))

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	if txn != nil {
		txn.RecordLog(data)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(data)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

// forwardedMessage flattens the entry into a single line. The error field is
// pulled out so it is searchable on its own.
func forwardedMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errString := "<nil>"
	fields := make(map[string]interface{}, len(e.Data))
	for k, v := range e.Data {
		if k == logrus.ErrorKey {
			if typed, ok := v.(error); ok {
				errString = fmt.Sprintf("%q", typed.Error())
			}
			continue
		}
		fields[k] = v
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%q", fmt.Sprint(fields)))
	}

	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errString, encoded)
}
