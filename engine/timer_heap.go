package engine

import (
	"time"

	"github.com/godyy/gutils/container/heap"
)

// timerWatcher PollEngine 定时器.
type timerWatcher struct {
	e         *PollEngine   // 所属 Engine.
	seq       uint64        // 创建序号, 到期时间相同时按序号先后触发.
	heapIndex int           // 堆索引.
	delay     time.Duration // 首次延迟时间.
	interval  time.Duration // 重复间隔.
	cb        Callback      // 回调函数.
	expireAt  int64         // 到期时间.
	active    bool          // 是否活跃.
	pending   bool          // 是否已到期等待分发.
	released  bool          // 是否已释放.
}

func (t *timerWatcher) HeapLess(other *timerWatcher) bool {
	if n := t.expireAt - other.expireAt; n == 0 {
		return t.seq < other.seq
	} else {
		return n < 0
	}
}

func (t *timerWatcher) HeapIndex() int {
	return t.heapIndex
}

func (t *timerWatcher) SetHeapIndex(index int) {
	t.heapIndex = index
}

// period 重新启动时的计时周期.
func (t *timerWatcher) period() time.Duration {
	if t.interval > 0 {
		return t.interval
	}
	return t.delay
}

// Start 实现 Handle.
func (t *timerWatcher) Start() error {
	if t.released {
		return ErrHandleReleased
	}
	if t.e.closed.Load() {
		return ErrClosed
	}
	if t.active || t.pending {
		return nil
	}
	t.e.timers.arm(t, t.e.now()+int64(t.period()))
	return nil
}

// Stop 实现 Handle.
func (t *timerWatcher) Stop() error {
	if t.released {
		return ErrHandleReleased
	}
	t.pending = false
	if t.active {
		t.e.timers.disarm(t)
	}
	return nil
}

// IsActive 实现 Handle. 已到期等待本轮分发的定时器仍视为活跃.
func (t *timerWatcher) IsActive() bool {
	return t.active || t.pending
}

// Release 实现 Handle.
func (t *timerWatcher) Release() error {
	if t.released {
		return nil
	}
	_ = t.Stop()
	t.released = true
	return nil
}

// timerHeap 最小堆定时器系统. 只在事件循环 goroutine 中访问.
type timerHeap struct {
	heap *heap.Heap[*timerWatcher] // 定时器最小堆.
}

// newTimerHeap 构造 timerHeap.
func newTimerHeap() *timerHeap {
	return &timerHeap{
		heap: heap.NewHeap[*timerWatcher](),
	}
}

// arm 以 expireAt 为到期时间启动定时器.
func (th *timerHeap) arm(t *timerWatcher, expireAt int64) {
	t.expireAt = expireAt
	t.active = true
	th.heap.Push(t)
}

// disarm 停止定时器.
func (th *timerHeap) disarm(t *timerWatcher) {
	th.heap.Remove(t.heapIndex)
	t.heapIndex = -1
	t.active = false
}

// len 返回活跃定时器数量.
func (th *timerHeap) len() int {
	return th.heap.Len()
}

// nextExpireAt 返回最近的到期时间.
func (th *timerHeap) nextExpireAt() (int64, bool) {
	if th.heap.Len() == 0 {
		return 0, false
	}
	return th.heap.Top().expireAt, true
}

// collect 取出所有在 now 之前到期的定时器, 标记为待分发.
// 到期的定时器在回调前即变为非活跃状态.
func (th *timerHeap) collect(now int64) (due []*timerWatcher) {
	for th.heap.Len() > 0 {
		t := th.heap.Top()
		if t.expireAt > now {
			break
		}
		th.disarm(t)
		t.pending = true
		due = append(due, t)
	}
	return due
}

// dispatch 依次调用到期定时器的回调.
// 回调出错时立即返回, 尚未分发的定时器按原到期时间重新入堆, 于下一轮触发.
func (th *timerHeap) dispatch(due []*timerWatcher) error {
	for i, t := range due {
		if !t.pending {
			continue
		}
		t.pending = false
		if err := t.cb(t); err != nil {
			th.requeue(due[i+1:])
			return err
		}
	}
	return nil
}

// requeue 将未分发的定时器重新入堆.
func (th *timerHeap) requeue(due []*timerWatcher) {
	for _, t := range due {
		if !t.pending {
			continue
		}
		t.pending = false
		th.arm(t, t.expireAt)
	}
}

// clear 清空所有定时器.
func (th *timerHeap) clear() {
	for th.heap.Len() > 0 {
		th.disarm(th.heap.Top())
	}
}
