package generator

import (
	"context"
	"errors"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

type serviceCall struct {
	action      Action
	description string
	source      domain.ImageHandle
	instruction string
}

// scriptedService は呼び出しを記録し、respond の結果を即座に返すテスト用サービスです。
type scriptedService struct {
	mu      sync.Mutex
	calls   []serviceCall
	respond func(n int, c serviceCall) (domain.ImageHandle, error)
}

func (s *scriptedService) record(c serviceCall) (domain.ImageHandle, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, c)
	s.mu.Unlock()

	if s.respond != nil {
		return s.respond(n, c)
	}
	if c.action == ActionEdit {
		return domain.ImageHandle("edit:" + c.instruction), nil
	}
	return domain.ImageHandle("gen:" + c.description), nil
}

func (s *scriptedService) GenerateImage(_ context.Context, description string) (domain.ImageHandle, error) {
	return s.record(serviceCall{action: ActionGenerate, description: description})
}

func (s *scriptedService) EditImage(_ context.Context, source domain.ImageHandle, instruction string) (domain.ImageHandle, error) {
	return s.record(serviceCall{action: ActionEdit, source: source, instruction: instruction})
}

func (s *scriptedService) Calls() []serviceCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]serviceCall(nil), s.calls...)
}

type reply struct {
	handle domain.ImageHandle
	err    error
}

type pendingCall struct {
	serviceCall
	reply chan reply
}

// gatedService は呼び出しごとに pendingCall を送出し、テスト側が応答を返すまでブロックします。
// 完了順序をテストから決定的に制御するために使います。
type gatedService struct {
	calls chan *pendingCall
}

func newGatedService() *gatedService {
	return &gatedService{calls: make(chan *pendingCall)}
}

func (g *gatedService) wait(ctx context.Context, c serviceCall) (domain.ImageHandle, error) {
	p := &pendingCall{serviceCall: c, reply: make(chan reply, 1)}
	select {
	case g.calls <- p:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case r := <-p.reply:
		return r.handle, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedService) GenerateImage(ctx context.Context, description string) (domain.ImageHandle, error) {
	return g.wait(ctx, serviceCall{action: ActionGenerate, description: description})
}

func (g *gatedService) EditImage(ctx context.Context, source domain.ImageHandle, instruction string) (domain.ImageHandle, error) {
	return g.wait(ctx, serviceCall{action: ActionEdit, source: source, instruction: instruction})
}

var errServiceDown = errors.New("service unavailable")

func serviceFailure() error {
	return domain.NewGenerationError(domain.KindServiceFailure, domain.MessageServiceFailure, errServiceDown)
}

func revokedCredential() error {
	return domain.NewGenerationError(domain.KindCredentialRevoked, domain.MessageCredentialRevoked,
		errors.New("Requested entity was not found"))
}
