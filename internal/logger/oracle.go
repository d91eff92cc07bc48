package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// Oracle payload dump: full request/response bodies go to a dedicated file so
// the main log stays readable. Disabled unless a writer is configured.

var (
	oracleMu     sync.Mutex
	oracleLog    *log.Logger
	oracleBodies bool
)

func SetOracleWriter(w io.Writer) {
	oracleMu.Lock()
	defer oracleMu.Unlock()
	if w == nil {
		oracleLog = nil
		return
	}
	oracleLog = log.New(w, "", log.LstdFlags)
}

func EnableOraclePayloadDump(enabled bool) {
	oracleMu.Lock()
	oracleBodies = enabled
	oracleMu.Unlock()
}

type oracleSection struct {
	title string
	body  string
}

func logOracle(kind, profile string, sections []oracleSection) {
	oracleMu.Lock()
	l := oracleLog
	oracleMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[ORACLE][" + kind + "]")
	if profile != "" {
		b.WriteString("[" + profile + "]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("--- " + sec.title + " ---\n")
		b.WriteString(sec.body)
		if !strings.HasSuffix(sec.body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

func LogOracleRequest(profile, systemPrompt, userPrompt string, imageCount int, payload string) {
	sections := []oracleSection{
		{title: "SYSTEM", body: systemPrompt},
		{title: "USER", body: userPrompt},
	}
	if imageCount > 0 {
		sections = append(sections, oracleSection{title: "IMAGES", body: fmt.Sprintf("attached=%d", imageCount)})
	}
	oracleMu.Lock()
	bodies := oracleBodies
	oracleMu.Unlock()
	if bodies && strings.TrimSpace(payload) != "" {
		sections = append(sections, oracleSection{title: "PAYLOAD", body: payload})
	}
	logOracle("request", profile, sections)
}

func LogOracleResponse(profile, raw string) {
	logOracle("response", profile, []oracleSection{{title: "RAW", body: raw}})
}
