package greactor

import (
	"math"

	"github.com/godyy/greactor/engine"
)

// WatcherId 监听器ID.
type WatcherId = uint64

// WatcherIdNone 监听器ID为0, 表示无监听器.
const WatcherIdNone = 0

// WatcherKind 监听器类型.
type WatcherKind int8

// 监听器类型枚举值.
const (
	KindOneShot   = WatcherKind(1) // 一次性定时器
	KindRepeating = WatcherKind(2) // 重复定时器
	KindIoRead    = WatcherKind(3) // 可读监听
	KindIoWrite   = WatcherKind(4) // 可写监听
)

// watcherKindStrings 监听器类型字符串值.
var watcherKindStrings = map[WatcherKind]string{
	KindOneShot:   "OneShot",
	KindRepeating: "Repeating",
	KindIoRead:    "IoRead",
	KindIoWrite:   "IoWrite",
}

func (k WatcherKind) String() string {
	if s, ok := watcherKindStrings[k]; ok {
		return s
	}
	return "Unknown"
}

// Callback 用户回调函数. 返回错误将停止 Reactor.
type Callback func() error

// watcher 已注册的监听器.
type watcher struct {
	reactor  *Reactor      // 所属 Reactor.
	id       WatcherId     // 监听器ID.
	kind     WatcherKind   // 类型.
	handle   engine.Handle // Engine 句柄, 由注册表独占.
	cb       Callback      // 用户回调.
	disabled bool          // 是否被 Disable.
}

// watcherIdGen 监听器ID生成器.
// 不检查ID是否仍被活跃监听器占用, 回绕后可能与存活极久的监听器冲突.
type watcherIdGen struct {
	lastId WatcherId // 最近一次生成的ID.
}

// next 生成监听器ID. 生成最大值后计数归零, 下一个ID为1, 从不生成 WatcherIdNone.
func (g *watcherIdGen) next() WatcherId {
	g.lastId++
	id := g.lastId
	if id == math.MaxUint64 {
		g.lastId = WatcherIdNone
	}
	return id
}

// watcherRegistry 监听器注册表.
type watcherRegistry struct {
	watchers map[WatcherId]*watcher
}

func newWatcherRegistry() *watcherRegistry {
	return &watcherRegistry{
		watchers: make(map[WatcherId]*watcher),
	}
}

func (r *watcherRegistry) insert(w *watcher) {
	r.watchers[w.id] = w
}

func (r *watcherRegistry) lookup(id WatcherId) (*watcher, bool) {
	w, ok := r.watchers[id]
	return w, ok
}

// remove 移除监听器, 不释放句柄.
func (r *watcherRegistry) remove(id WatcherId) {
	delete(r.watchers, id)
}

func (r *watcherRegistry) len() int {
	return len(r.watchers)
}

// drain 移除并返回全部监听器.
func (r *watcherRegistry) drain() []*watcher {
	ws := make([]*watcher, 0, len(r.watchers))
	for id, w := range r.watchers {
		ws = append(ws, w)
		delete(r.watchers, id)
	}
	return ws
}
