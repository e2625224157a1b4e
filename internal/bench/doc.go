// Package bench is the benchmark engine: it provisions sessions in bulk, times
// message-send probes, averages repeated trials, and races live event
// subscriptions against bounded send workloads.
//
// A typical run:
//
//	h := &bench.Harness{
//		Provisioner:     &bench.Provisioner{Client: client, Secret: secret, GuildName: "test", CreateChannel: true},
//		IdentityPattern: "test%d@test.org",
//	}
//	res, err := h.SendMessages(ctx, bench.SendMessagesOptions{Clients: 4, Sizes: []int{10, 100, 1000}, Trials: 10, Warmup: true})
//
// Sessions are never shared between goroutines. Per-session results are
// written to distinct slots and folded by a single owner after every worker
// has been joined.
package bench
