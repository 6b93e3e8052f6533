package consts

const (
	ApplicationName    = "Pictora API"
	ApplicationVersion = "v1.0.0"
)

// 积分规则
const (
	InitialCreditAmount = 10  // 新用户初始积分
	TaskCreditCost      = 1   // 每次生成消耗积分
	VipCreditBonus      = 100 // 订阅 VIP 赠送积分
)

// 任务列表单次返回上限
const TaskListLimit = 50
