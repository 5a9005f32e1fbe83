package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentrelay/agentrelay/agent"
	"github.com/agentrelay/agentrelay/conversation"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/memory"
)

// systemSender marks failure records written by the orchestrator itself.
const systemSender = "system"

// turn carries the shared per-turn pipeline state. Both orchestrators run the
// same load → persist-user → invoke → persist-response sequence once the agent
// has been resolved; they differ only in resolution.
type turn struct {
	repo   memory.Repository
	logger logging.Logger
}

// loadContext fetches the thread snapshot, creating the thread on first
// contact. A concurrent create by another turn is tolerated by re-reading.
func (t *turn) loadContext(threadID string) (*conversation.Thread, error) {
	th, err := t.repo.GetThread(threadID)
	if err == nil {
		return th, nil
	}
	var notFound *memory.ThreadNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	t.logger.Debug("orchestrator.thread.create", "thread_id", threadID)
	if err := t.repo.CreateThread(conversation.NewThread(threadID)); err != nil {
		var dup *memory.DuplicateThreadError
		if !errors.As(err, &dup) {
			return nil, err
		}
	}
	return t.repo.GetThread(threadID)
}

// persist appends a message to the thread, logging on failure.
func (t *turn) persist(threadID, sender, content string, metadata map[string]string) error {
	msg := conversation.NewMessage(threadID, sender, content, func(o *conversation.MessageOptions) {
		o.Metadata = metadata
	})
	if err := t.repo.AppendMessage(threadID, msg); err != nil {
		t.logger.Error("orchestrator.persist.failed", "thread_id", threadID, "sender", sender, "error", err)
		return err
	}
	return nil
}

// recordFailure writes a system-sender record of a failed invocation so the
// thread keeps a complete account of the turn. Best effort: a store failure
// here is logged, not surfaced, because the invocation error takes precedence.
func (t *turn) recordFailure(threadID, agentName string, cause error) {
	content := fmt.Sprintf("agent %q failed: %v", agentName, cause)
	_ = t.persist(threadID, systemSender, content, nil)
}

// invoke runs the agent synchronously or, when sink is non-nil, in streaming
// mode with fragments forwarded in order. The returned text is the full
// response either way.
func (t *turn) invoke(ctx context.Context, ag agent.Agent, aReq agent.Request, sink StreamSink, prefix string) (string, error) {
	if sink == nil {
		text, err := ag.HandleMessage(ctx, aReq)
		if err != nil {
			return "", err
		}
		return prefix + text, nil
	}

	// A cancellable child context lets a sink failure tear down the producer.
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fragments, errCh := ag.HandleMessageStream(sctx, aReq)

	var sb strings.Builder
	if prefix != "" {
		if err := sink(prefix); err != nil {
			cancel()
			for range fragments {
			}
			<-errCh
			return "", &StreamSinkError{Err: err}
		}
		sb.WriteString(prefix)
	}
	for fragment := range fragments {
		if err := sink(fragment); err != nil {
			cancel()
			for range fragments {
			}
			<-errCh
			return "", &StreamSinkError{Err: err}
		}
		sb.WriteString(fragment)
	}
	if err := <-errCh; err != nil {
		return "", err
	}
	return sb.String(), nil
}

// execute runs the pipeline for an already-resolved agent. prefix, when
// non-empty, is prepended to both the streamed and the persisted response.
func (t *turn) execute(ctx context.Context, ag agent.Agent, req Request, prefix string) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	turnID := uuid.NewString()
	start := time.Now()

	th, err := t.loadContext(req.ThreadID)
	if err != nil {
		return "", err
	}
	if err := t.persist(req.ThreadID, "user", req.Message, req.Metadata); err != nil {
		return "", err
	}

	aReq := agent.Request{ThreadID: req.ThreadID, Message: req.Message, Context: th.Messages}
	text, err := t.invoke(ctx, ag, aReq, req.Sink, prefix)
	if err != nil {
		// A consumer abort is not an agent failure: surface it as is and
		// leave the thread without a failure marker.
		var sinkErr *StreamSinkError
		if errors.As(err, &sinkErr) {
			t.logger.Warn("orchestrator.turn.aborted", "thread_id", req.ThreadID, "turn_id", turnID,
				"agent", ag.Name(), "duration_ms", time.Since(start).Milliseconds(), "error", err)
			return "", err
		}
		var invErr *agent.InvocationError
		if !errors.As(err, &invErr) {
			err = &agent.InvocationError{Agent: ag.Name(), Backend: "unknown", Err: err}
		}
		t.recordFailure(req.ThreadID, ag.Name(), err)
		t.logger.Error("orchestrator.turn.failed", "thread_id", req.ThreadID, "turn_id", turnID,
			"agent", ag.Name(), "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", err
	}

	if err := t.persist(req.ThreadID, ag.Name(), text, nil); err != nil {
		return "", err
	}
	t.logger.Info("orchestrator.turn.completed", "thread_id", req.ThreadID, "turn_id", turnID,
		"agent", ag.Name(), "streamed", req.Sink != nil, "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}
