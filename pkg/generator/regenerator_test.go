package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store"
)

func TestRegenerator_Regenerate(t *testing.T) {
	tests := []struct {
		name        string
		prior       *domain.ImageState
		instruction string
		wantAction  Action
		wantHandle  domain.ImageHandle
	}{
		{
			name:        "完成画像がなければ指示があっても新規生成すること",
			prior:       nil,
			instruction: "make it rain",
			wantAction:  ActionGenerate,
			wantHandle:  "gen:desc",
		},
		{
			name:        "前回がエラーなら新規生成すること",
			prior:       ptrState(domain.Failed("boom")),
			instruction: "make it rain",
			wantAction:  ActionGenerate,
			wantHandle:  "gen:desc",
		},
		{
			name:        "完成画像と指示があれば編集すること",
			prior:       ptrState(domain.Done("img-1")),
			instruction: "make it rain",
			wantAction:  ActionEdit,
			wantHandle:  "edit:make it rain",
		},
		{
			name:        "指示が空なら新規生成すること",
			prior:       ptrState(domain.Done("img-1")),
			instruction: "   ",
			wantAction:  ActionGenerate,
			wantHandle:  "gen:desc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &scriptedService{}
			states := store.NewImageStateMap()
			epoch := states.Reset()
			if tt.prior != nil {
				states.Set(epoch, "Shot 1", *tt.prior)
			}
			r := NewRegenerator(svc, states)

			scene := domain.Scene{ID: "Shot 1", VisualDescription: "desc", EditInstruction: tt.instruction}
			action, err := r.Regenerate(context.Background(), epoch, scene)
			if err != nil {
				t.Fatalf("エラーが発生しました: %v", err)
			}
			if action != tt.wantAction {
				t.Errorf("操作 期待値 %s, 実際の値 %s", tt.wantAction, action)
			}

			calls := svc.Calls()
			if len(calls) != 1 || calls[0].action != tt.wantAction {
				t.Fatalf("呼び出しが不正です: %+v", calls)
			}
			if tt.wantAction == ActionEdit {
				if calls[0].source != "img-1" || calls[0].instruction != tt.instruction {
					t.Errorf("編集の引数が不正です: %+v", calls[0])
				}
			}
			if st := states.Get("Shot 1"); !st.IsDone() || st.Handle != tt.wantHandle {
				t.Errorf("最終状態が不正です: %+v", st)
			}
		})
	}
}

func TestRegenerator_FullRegenerateIgnoresExistingImage(t *testing.T) {
	svc := &scriptedService{}
	states := store.NewImageStateMap()
	epoch := states.Reset()
	states.Set(epoch, "Shot 1", domain.Done("img-1"))

	r := NewRegenerator(svc, states)
	scene := domain.Scene{ID: "Shot 1", VisualDescription: "desc", EditInstruction: "keep"}
	if err := r.FullRegenerate(context.Background(), epoch, scene); err != nil {
		t.Fatal(err)
	}
	calls := svc.Calls()
	if len(calls) != 1 || calls[0].action != ActionGenerate || calls[0].description != "desc" {
		t.Errorf("新規生成が呼ばれていません: %+v", calls)
	}
}

func TestRegenerator_EditSourceMissing(t *testing.T) {
	ctx := context.Background()
	svc := &scriptedService{respond: func(_ int, c serviceCall) (domain.ImageHandle, error) {
		if c.action == ActionEdit {
			return "", domain.NewGenerationError(domain.KindServiceFailure, domain.MessageServiceFailure,
				fmt.Errorf("編集元の画像を取得できません: %s: %w", c.source, domain.ErrImageNotFound))
		}
		return domain.ImageHandle("gen:" + c.description), nil
	}}
	states := store.NewImageStateMap()
	epoch := states.Reset()
	scene := domain.Scene{ID: "Shot 1", VisualDescription: "desc", EditInstruction: "make it rain"}
	states.Set(epoch, scene.ID, domain.Done("img-evicted"))

	action, err := NewRegenerator(svc, states).Regenerate(ctx, epoch, scene)
	if err != nil {
		t.Fatalf("編集元がなくても新規生成で完了するはずなのだ: %v", err)
	}
	if action != ActionGenerate {
		t.Errorf("action = %s, want %s", action, ActionGenerate)
	}
	if got := states.Get(scene.ID); got.Handle != "gen:desc" {
		t.Errorf("新規生成の結果が記録されていません: %+v", got)
	}

	calls := svc.Calls()
	if len(calls) != 2 || calls[0].action != ActionEdit || calls[1].action != ActionGenerate {
		t.Errorf("編集の後に新規生成が呼ばれていません: %+v", calls)
	}
}

func TestRegenerator_FailureRecordsError(t *testing.T) {
	svc := &scriptedService{
		respond: func(int, serviceCall) (domain.ImageHandle, error) { return "", serviceFailure() },
	}
	states := store.NewImageStateMap()
	epoch := states.Reset()
	r := NewRegenerator(svc, states)

	_, err := r.Regenerate(context.Background(), epoch, domain.Scene{ID: "Shot 1", VisualDescription: "d"})
	if !errors.Is(err, errServiceDown) {
		t.Errorf("原因エラーが返されていません: %v", err)
	}
	if st := states.Get("Shot 1"); !st.IsError() || st.Message != domain.MessageServiceFailure {
		t.Errorf("Error 状態が記録されていません: %+v", st)
	}
}

func TestRegenerator_LastCompletionWins(t *testing.T) {
	svc := newGatedService()
	states := store.NewImageStateMap()
	epoch := states.Reset()
	r := NewRegenerator(svc, states)
	scene := domain.Scene{ID: "Shot 1", VisualDescription: "d"}

	firstDone := make(chan error, 1)
	go func() { _, err := r.Regenerate(context.Background(), epoch, scene); firstDone <- err }()
	first := <-svc.calls

	secondDone := make(chan error, 1)
	go func() { _, err := r.Regenerate(context.Background(), epoch, scene); secondDone <- err }()
	second := <-svc.calls

	if !states.Get("Shot 1").IsLoading() {
		t.Fatal("進行中は Loading であるべきです")
	}

	// 後から発行した要求を先に完了させる
	second.reply <- reply{handle: "second"}
	if err := <-secondDone; err != nil {
		t.Fatal(err)
	}
	first.reply <- reply{handle: "first"}
	if err := <-firstDone; err != nil {
		t.Fatal(err)
	}

	if st := states.Get("Shot 1"); st.Handle != "first" {
		t.Errorf("後に完了した要求の結果が残るべきです: %+v", st)
	}
}

func TestRegenerator_StaleEpoch(t *testing.T) {
	svc := &scriptedService{}
	states := store.NewImageStateMap()
	old := states.Reset()
	states.Reset()
	r := NewRegenerator(svc, states)

	err := r.FullRegenerate(context.Background(), old, domain.Scene{ID: "Shot 1"})
	if !errors.Is(err, domain.ErrStaleEpoch) {
		t.Errorf("ErrStaleEpoch ではありません: %v", err)
	}
	if len(svc.Calls()) != 0 {
		t.Error("古いエポックの要求でサービスが呼ばれました")
	}
}

func ptrState(s domain.ImageState) *domain.ImageState { return &s }
