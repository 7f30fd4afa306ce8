package entity

// sessionStatusRank 会话状态的推进顺序。
// 状态只能沿序号增大的方向推进，序号是显式维护的，不依赖声明顺序
var sessionStatusRank = map[string]int{
	SessionStatusCheckedIn:        10,
	SessionStatusCustomerRequest:  20,
	SessionStatusInspection:       30,
	SessionStatusTestDrive:        40,
	SessionStatusAwaitingApproval: 50,
	SessionStatusInProgress:       60,
	SessionStatusQualityCheck:     70,
	SessionStatusCompleted:        80,
	SessionStatusReadyForPickup:   90,
	SessionStatusClosed:           100,
}

// SessionStatusRank 返回会话状态序号，未知状态返回 -1
func SessionStatusRank(status string) int {
	if rank, ok := sessionStatusRank[status]; ok {
		return rank
	}
	return -1
}

// SessionStatusAdvances 判断 next 是否比 current 更靠后。
// 子阶段创建时只允许向前推进会话状态，禁止回退
func SessionStatusAdvances(current, next string) bool {
	return SessionStatusRank(next) > SessionStatusRank(current)
}

// jobCardTransitions 工单状态机的显式转移表。
// WAITING_PARTS 是 IN_PROGRESS 的侧分支，可以往返
var jobCardTransitions = map[string][]string{
	JobCardStatusPending:      {JobCardStatusInProgress},
	JobCardStatusInProgress:   {JobCardStatusWaitingParts, JobCardStatusQualityCheck, JobCardStatusCompleted},
	JobCardStatusWaitingParts: {JobCardStatusInProgress},
	JobCardStatusQualityCheck: {JobCardStatusCompleted, JobCardStatusInProgress},
	JobCardStatusCompleted:    {},
}

// JobCardCanTransition 判断工单状态能否从 current 转移到 next
func JobCardCanTransition(current, next string) bool {
	for _, allowed := range jobCardTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}
