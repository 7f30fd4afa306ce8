package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// 各业务编号前缀
const (
	PrefixSession  = "SES"
	PrefixJobCard  = "JC"
	PrefixMovement = "MOV"
)

// NextNumber 在调用方事务内分配租户当日的下一个编号。
// 格式固定为 PREFIX-YYYYMMDD-NNNN，每天从 0001 开始。
// 先拿租户+前缀+日期粒度的咨询锁把同日分配串行化，锁持有到事务结束，
// 等锁的事务重读时能看到先提交的编号；(company_id, number) 唯一索引兜底，
// 调用方捕获冲突后换号重试。
// 超过9999后序号自然变长，按长度优先排序保证取到的仍是最大值
func NextNumber(tx *gorm.DB, table, column, companyID, prefix string, now time.Time) (string, error) {
	day := now.Format("20060102")
	scope := fmt.Sprintf("%s:%s:%s:%s", table, companyID, prefix, day)
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", scope).Error; err != nil {
		return "", fmt.Errorf("获取编号分配锁失败: %w", err)
	}

	var last string
	err := tx.Table(table).
		Select(column).
		Where("company_id = ? AND "+column+" LIKE ?", companyID, fmt.Sprintf("%s-%s-%%", prefix, day)).
		Order("length(" + column + ") DESC, " + column + " DESC").
		Limit(1).
		Scan(&last).Error
	if err != nil {
		return "", fmt.Errorf("查询当日最大编号失败: %w", err)
	}

	seq := 0
	if last != "" {
		seq = parseSequence(last, prefix, day)
	}
	return FormatNumber(prefix, day, seq+1), nil
}

// FormatNumber 组装编号，序号补零到4位
func FormatNumber(prefix, day string, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day, seq)
}

// parseSequence 从编号中取出序号，解析失败返回0。
// 序号可能超过4位，不能限定扫描宽度
func parseSequence(number, prefix, day string) int {
	var seq int
	if _, err := fmt.Sscanf(number, prefix+"-"+day+"-%d", &seq); err != nil {
		return 0
	}
	return seq
}
