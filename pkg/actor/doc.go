// Package actor 提供进程内 Actor 运行时与监督者
//
// 每个 Actor 绑定一个专属 worker（goroutine），只通过有序邮箱通信：
// • 拥有私有状态（无需锁保护）
// • 邮箱内严格 FIFO，不同邮箱之间不保证顺序
// • 所有状态修改都发生在自己的 worker 上
//
// # 核心组件
//
// [Mailbox] 无界（可选有界）多生产者单消费者队列，支持带超时的接收。
//
// [Future] 单槽结果单元，[Future.Await] 超时后仍可再次等待，[Future.Poll] 非阻塞读取。
//
// [Actor] 运行 “接收 → 分发 → 重复” 的循环，直到收到停止信号：
//
//	a := actor.New(actor.WithName("calc"))
//	a.Start()
//	defer a.Stop()
//
//	add := actor.Method2(a, func(x, y int) (int, error) { return x + y, nil })
//	sum, err := add(1, 2).Await(time.Second)
//
// [Invoke]、[Method]、[Method2]、[Exec] 把普通函数包装成在 worker 上执行的调用，
// 这是整个运行时避免显式加锁的方式。调用返回的错误和 panic 都通过 Future 交给调用方。
//
// # 监督
//
// [Supervisor] 本身也是 Actor。[Supervisor.Add] 和 [Supervisor.Remove] 只是向它的邮箱
// 投递管理消息，注册表只在监督者的 worker 上修改。
//
// Actor 循环中未捕获的 panic 被视为 worker 崩溃，通过 [CrashDetector] 转为监督者邮箱中
// 的消息。监督者按滑动窗口计数：窗口内失败不超过 MaxErrorsCount 时重启（新 worker，
// 相同 ID），超过时永久移除该 Actor，并把自己标记为不健康。
//
// # 心跳
//
// 配置了 [HeartbeatSink] 的监督者在空闲时按周期写入存活标记，外部通过标记的修改时间
// 判断进程是否存活。不健康后不再写入，让外部监控发现问题。
//
// 完整使用示例请参考 example_test.go 或运行 go doc -all。
package actor
