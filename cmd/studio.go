package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/pkg/asset"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
	"github.com/shouni/go-storyboard-kit/pkg/store"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/spf13/cobra"
)

// studioCmd は、対話的にショットを確認しながら生成と編集を行うセッションを開始します。
var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "対話的に絵コンテを生成・編集します。",
	Long: `台本を読み込んでショットごとに画像を生成し、編集指示による修正や再生成を対話的に行います。
'help' で利用できるコマンドを表示します。`,
	RunE: studioCommand,
}

func init() {
	studioCmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "保存先のディレクトリ。")
	studioCmd.Flags().StringVar(&opts.Title, "title", config.DefaultTitle, "絵コンテのタイトル。")
}

const studioHelp = `コマンド:
  load <source>   台本を読み込んでショットに分割します（既存の画像は破棄されます）
  run             全ショットの画像をバックグラウンドで順番に生成します
  wait            実行中のバッチが終わるまで待ちます
  list            ショットと画像の状態を表示します
  regen N         編集指示があれば編集、なければ新規生成します
  full N          編集指示を無視して新規生成します
  edit N <text>   編集指示を設定します
  desc N <text>   描写を書き換えます
  save N          ショット N の画像を保存します
  retry           失敗したショットをすべて再生成します
  publish         完成した画像と絵コンテを書き出します
  tier free|paid  アカウント種別を切り替えます（次回の load から反映）
  quit            終了します`

func studioCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tiers := storyboard.NewTierBroadcaster(cfg.Tier)
	m, err := newManager(ctx, cfg, tiers)
	if err != nil {
		return err
	}

	st, err := newStudio(m, tiers, cmd.OutOrStdout(), opts.OutputDir, opts.Title)
	if err != nil {
		return err
	}
	st.session.WatchTier(ctx)

	if opts.Script != "" {
		if _, err := st.exec(ctx, "load "+opts.Script); err != nil {
			return err
		}
	}
	return st.loop(ctx, cmd.InOrStdin())
}

// studio は対話セッションの1行コマンドを Session の操作に変換します。
// バッチは別のゴルーチンで走るので、その間も regen や full を受け付けるのだ。
type studio struct {
	session   *storyboard.Session
	vault     *asset.Vault
	tiers     *storyboard.TierBroadcaster
	script    workflow.ScriptRunner
	publish   workflow.PublishRunner
	out       io.Writer
	outputDir string
	title     string

	mu          sync.Mutex
	batchCancel context.CancelFunc
	batchDone   chan struct{}
}

// syncWriter はバッチのゴルーチンと入力ループからの書き込みを直列化します。
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

func newStudio(m *workflow.Manager, tiers *storyboard.TierBroadcaster, out io.Writer, outputDir, title string) (*studio, error) {
	script, err := m.BuildScriptRunner()
	if err != nil {
		return nil, err
	}
	publish, err := m.BuildPublishRunner()
	if err != nil {
		return nil, err
	}

	st := &studio{
		session:   m.Session(),
		vault:     m.Vault(),
		tiers:     tiers,
		script:    script,
		publish:   publish,
		out:       &syncWriter{w: out},
		outputDir: outputDir,
		title:     title,
	}
	st.session.OnStateChange(st.report)
	return st, nil
}

// report は各ショットの生成結果が確定した時点で1行表示します。
func (st *studio) report(epoch store.Epoch, sceneID string, state domain.ImageState) {
	slog.Debug("画像状態が更新されました", "epoch", epoch, "scene", sceneID, "status", state.Status)
	switch {
	case state.IsDone():
		fmt.Fprintf(st.out, "[%s] %s\n", sceneID, state.Status)
	case state.IsError():
		fmt.Fprintf(st.out, "[%s] %s: %s\n", sceneID, state.Status, state.Message)
	}
}

// loop は入力が尽きるか quit が入力されるまでコマンドを処理します。
// 個々のコマンドの失敗は表示するだけで、セッションは継続します。
// 終了時には実行中のバッチを打ち切り、その終了を待ちます。
func (st *studio) loop(ctx context.Context, in io.Reader) error {
	defer st.stopBatch()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(st.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(st.out)
			return scanner.Err()
		}
		quit, err := st.exec(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintf(st.out, "エラー: %v\n", err)
		}
		if msg := st.session.Err(); msg != "" {
			fmt.Fprintf(st.out, "! %s\n", msg)
		}
		if quit {
			return nil
		}
	}
}

var errUnknownCommand = errors.New("不明なコマンドです ('help' で一覧を表示)")

// exec は1行分のコマンドを実行します。quit の場合は true を返します。
func (st *studio) exec(ctx context.Context, line string) (bool, error) {
	name, rest := cutWord(line)
	switch name {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(st.out, studioHelp)
	case "load":
		return false, st.load(ctx, rest)
	case "run":
		return false, st.startBatch(ctx)
	case "wait":
		st.waitBatch()
	case "list":
		st.list()
	case "regen":
		id, _, err := st.shotArg(rest)
		if err != nil {
			return false, err
		}
		action, err := st.session.Regenerate(ctx, id)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(st.out, "%s: %s\n", id, action)
	case "full":
		id, _, err := st.shotArg(rest)
		if err != nil {
			return false, err
		}
		return false, st.session.FullRegenerate(ctx, id)
	case "edit":
		id, text, err := st.shotArg(rest)
		if err != nil {
			return false, err
		}
		return false, st.session.UpdateInstruction(id, text)
	case "desc":
		id, text, err := st.shotArg(rest)
		if err != nil {
			return false, err
		}
		return false, st.session.UpdateDescription(id, text)
	case "save":
		return false, st.save(ctx, rest)
	case "retry":
		n, err := st.session.RetryFailed(ctx)
		fmt.Fprintf(st.out, "%d 件を再生成しました\n", n)
		return false, err
	case "publish":
		res, err := st.publish.Run(ctx, st.session.Shots(), st.outputDir, st.title)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(st.out, "%s (%d 枚)\n", res.MarkdownPath, len(res.ImagePaths))
	case "tier":
		t := domain.ParseTier(rest)
		st.tiers.Set(t)
		fmt.Fprintf(st.out, "アカウント種別: %s（次回の load から反映されます）\n", t)
	default:
		return false, errUnknownCommand
	}
	return false, nil
}

// startBatch はバッチ生成をバックグラウンドで開始します。
// 各ショットの結果は report が、バッチ全体の集計は終了時にこのゴルーチンが表示します。
func (st *studio) startBatch(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.batchDone != nil {
		select {
		case <-st.batchDone:
		default:
			return domain.ErrBatchInFlight
		}
	}

	bctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	st.batchCancel, st.batchDone = cancel, done

	go func() {
		defer close(done)
		defer cancel()

		res, err := st.session.RunBatch(bctx)
		fmt.Fprintf(st.out, "完了 %d / 失敗 %d / 全 %d\n", res.Completed, res.Failed, res.Total)
		if err != nil {
			fmt.Fprintf(st.out, "エラー: %v\n", err)
		}
	}()

	fmt.Fprintln(st.out, "バッチ生成を開始しました ('wait' で完了を待ちます)")
	return nil
}

// waitBatch は実行中のバッチがあれば、その終了を待ちます。
func (st *studio) waitBatch() {
	st.mu.Lock()
	done := st.batchDone
	st.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (st *studio) stopBatch() {
	st.mu.Lock()
	cancel := st.batchCancel
	st.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	st.waitBatch()
}

func (st *studio) load(ctx context.Context, source string) error {
	text, err := st.script.Run(ctx, source)
	if err != nil {
		return err
	}
	scenes, err := st.session.SubmitScript(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(st.out, "%d ショットに分割しました\n", len(scenes))
	return nil
}

func (st *studio) list() {
	for _, shot := range st.session.Shots() {
		status := string(shot.Image.Status)
		if shot.Image.IsError() {
			status += ": " + shot.Image.Message
		}
		fmt.Fprintf(st.out, "[%s] %s\n    %s\n", shot.ID, status, shot.VisualDescription)
		if shot.HasEditInstruction() {
			fmt.Fprintf(st.out, "    edit: %s\n", shot.EditInstruction)
		}
	}
}

func (st *studio) save(ctx context.Context, arg string) error {
	id, _, err := st.shotArg(arg)
	if err != nil {
		return err
	}
	state := st.session.State(id)
	if !state.IsDone() {
		return fmt.Errorf("%s の画像はまだ生成されていません (%s)", id, state.Status)
	}
	path, err := st.vault.Save(ctx, state.Handle, id, st.outputDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(st.out, path)
	return nil
}

// shotArg は "N 残りのテキスト" を解析し、存在するショットの識別子と残りを返します。
func (st *studio) shotArg(arg string) (string, string, error) {
	num, rest := cutWord(arg)
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return "", "", fmt.Errorf("ショット番号が不正です: %q", num)
	}
	id := domain.ShotID(n)
	if _, ok := st.session.Scenes().Find(id); !ok {
		return "", "", fmt.Errorf("%w: %s", domain.ErrSceneNotFound, id)
	}
	return id, rest, nil
}

func cutWord(s string) (string, string) {
	word, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	return word, strings.TrimSpace(rest)
}
