package main

import (
	"github.com/shouni/go-storyboard-kit/cmd"
)

// main はアプリケーションの唯一のエントリーポイントなのだ。
// コマンドライン引数の解析と実行はすべて cmd パッケージに委ねるのだ。
func main() {
	cmd.Execute()
}
