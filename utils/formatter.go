package utils

import (
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// ConduitFormatter wraps the logrus text formatter and appends an optional
// "body" field below the log line, colored by the "color" field.
type ConduitFormatter struct {
	Formatter logrus.TextFormatter
}

func (f *ConduitFormatter) DisableColors() {
	color.NoColor = true
	f.Formatter.DisableColors = true
}

func (f *ConduitFormatter) EnableColors() {
	color.NoColor = false
	f.Formatter.DisableColors = false
	f.Formatter.ForceColors = true
}

func (f *ConduitFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := (map[string]interface{})(entry.Data)

	var colorPrint *color.Color
	if fgColor, isColor := data["color"].(color.Attribute); isColor {
		colorPrint = color.New(fgColor)
		delete(entry.Data, "color")
	} else {
		colorPrint = color.New()
	}

	var body []byte

	hasBody := false

	switch v := data["body"].(type) {
	case []byte:
		body, hasBody = v, true
	case string:
		body, hasBody = []byte(v), true
	}

	if hasBody {
		delete(entry.Data, "body")
	}

	lineBuf, err := f.Formatter.Format(entry)
	if err != nil {
		return nil, err
	}

	if hasBody {
		lineBuf = append(lineBuf, colorPrint.Sprint(string(body))...)

		if len(body) > 0 && body[len(body)-1] != '\n' {
			lineBuf = append(lineBuf, '\n')
		}
	}

	return lineBuf, nil
}

// NewLogger builds the logger both binaries use.
func NewLogger(verbose, noColor bool) *logrus.Logger {
	logger := logrus.New()

	formatter := &ConduitFormatter{}
	formatter.Formatter.FullTimestamp = true

	if noColor {
		formatter.DisableColors()
	} else {
		formatter.EnableColors()
	}

	logger.SetFormatter(formatter)

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return logger
}
