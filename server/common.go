// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alan-mat/saidia/internal/transport"
)

// readAnswer drains a message stream into the full answer text. Transient
// read failures are retried with a short backoff; ten in a row give up.
func readAnswer(ctx context.Context, traceID string, tstream transport.MessageStream) (string, error) {
	var acc string
	readFails := 0
	for {
		msg, err := tstream.Recv(ctx)

		if err != nil {
			if ctx.Err() != nil {
				return acc, ctx.Err()
			}
			slog.Warn("failed to read from stream", "stream", traceID)
			readFails += 1
			if readFails >= 10 {
				slog.Error("exceeded stream read attempts, failed", "id", traceID)
				return acc, fmt.Errorf("answer stream failed")
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		readFails = 0

		acc += msg.Content

		if msg.Final {
			switch msg.Status {
			case transport.StatusErr:
				return acc, fmt.Errorf("failed to answer question: %s", msg.Content)
			case transport.StatusDegraded:
				// the final content replaces any partial output
				return msg.Content, nil
			}
			slog.Debug("message stream done", "trace", traceID)
			return acc, nil
		}
	}
}
