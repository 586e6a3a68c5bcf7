package client

import (
	"github.com/google/uuid"

	"shark-remote/protocol"
)

// workingSet 单个视频的标注工作集：committed 是服务端确认过的真值，
// uncommitted 是推测视图。每次变更前 uncommitted 必须是 committed 的副本，
// 变更立即落在 uncommitted 上；成功后提交，失败后回退。
// 并发控制由 Client 的互斥锁统一负责，这里不加锁。
type workingSet struct {
	committed   map[uuid.UUID]protocol.Localization
	uncommitted map[uuid.UUID]protocol.Localization
}

func newWorkingSet() *workingSet {
	return &workingSet{
		committed:   make(map[uuid.UUID]protocol.Localization),
		uncommitted: make(map[uuid.UUID]protocol.Localization),
	}
}

// stage 在推测视图中新增或覆盖标注。
func (w *workingSet) stage(ls ...protocol.Localization) {
	for _, l := range ls {
		w.uncommitted[l.UUID] = l
	}
}

// unstage 从推测视图中移除标注。
func (w *workingSet) unstage(ids ...uuid.UUID) {
	for _, id := range ids {
		delete(w.uncommitted, id)
	}
}

// clearStaged 清空推测视图。
func (w *workingSet) clearStaged() {
	w.uncommitted = make(map[uuid.UUID]protocol.Localization)
}

// commit 将推测视图整体固化为真值。
// 说明：这里是整体替换而非合并，否则 remove 产生的删除永远无法落到真值。
func (w *workingSet) commit() {
	w.committed = copyLocalizations(w.uncommitted)
}

// revert 丢弃推测变更，推测视图恢复为真值的副本。
func (w *workingSet) revert() {
	w.uncommitted = copyLocalizations(w.committed)
}

// committedView 返回真值列表副本。
func (w *workingSet) committedView() []protocol.Localization {
	return localizationList(w.committed)
}

// uncommittedView 返回推测视图列表副本。
func (w *workingSet) uncommittedView() []protocol.Localization {
	return localizationList(w.uncommitted)
}

func copyLocalizations(m map[uuid.UUID]protocol.Localization) map[uuid.UUID]protocol.Localization {
	out := make(map[uuid.UUID]protocol.Localization, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func localizationList(m map[uuid.UUID]protocol.Localization) []protocol.Localization {
	out := make([]protocol.Localization, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
