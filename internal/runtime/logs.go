package runtime

import (
	"encoding/base64"
	"fmt"

	"solana-token-transfer/internal/solana"
)

// MaxReturnDataLength caps set_return_data payloads.
const MaxReturnDataLength = 1024

// MaxLogMessages caps the log lines kept per transaction.
const MaxLogMessages = 10_000

type logCollector struct {
	messages  []string
	truncated bool
}

func (l *logCollector) add(msg string) {
	if l.truncated {
		return
	}
	if len(l.messages) >= MaxLogMessages {
		l.messages = append(l.messages, "Log truncated")
		l.truncated = true
		return
	}
	l.messages = append(l.messages, msg)
}

func (l *logCollector) invoke(programID solana.PublicKey, height int) {
	l.add(fmt.Sprintf("Program %s invoke [%d]", programID, height))
}

func (l *logCollector) success(programID solana.PublicKey) {
	l.add(fmt.Sprintf("Program %s success", programID))
}

func (l *logCollector) failed(programID solana.PublicKey, err error) {
	l.add(fmt.Sprintf("Program %s failed: %v", programID, err))
}

func (l *logCollector) returnData(programID solana.PublicKey, data []byte) {
	l.add(fmt.Sprintf("Program return: %s %s", programID, base64.StdEncoding.EncodeToString(data)))
}
