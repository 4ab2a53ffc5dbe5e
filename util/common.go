package util

import (
	"context"
	"fmt"
	"go.uber.org/zap"
	"shadowswap/applog"
	"strconv"
	"strings"
)

func WrapAppContextCancelExitMessage(ctx context.Context, appName string) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		applog.Info(fmt.Sprintf("%s exited; context cancelled", appName), zap.Error(ctxErr))
		return
	}

	applog.Info(fmt.Sprintf("%s exited", appName))
}

// DataToHex renders bytes as space separated upper-case hex pairs ("01 A0 FF").
func DataToHex(buffer []byte) string {
	var sb strings.Builder
	for i, b := range buffer {
		if i > 0 {
			sb.WriteByte(' ')
		}
		_, _ = fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// HexStrToData is the inverse of DataToHex and tolerates extra whitespace. It returns nil on any malformed pair.
func HexStrToData(hexStr string) []byte {
	parts := strings.Fields(hexStr)
	data := make([]byte, len(parts))
	for i, part := range parts {
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return nil
		}
		data[i] = byte(b)
	}
	return data
}
