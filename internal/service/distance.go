package service

import "strings"

// DistanceProvider 教室距离查询（米），未知教室返回 0
type DistanceProvider interface {
	Distance(classroom string) int
}

// StaticDistanceProvider 基于配置表的距离查询
// 配置加载后 key 会被转成小写，查询时同样忽略大小写
type StaticDistanceProvider struct {
	table map[string]int
}

// NewStaticDistanceProvider 创建静态距离表
func NewStaticDistanceProvider(table map[string]int) *StaticDistanceProvider {
	t := make(map[string]int, len(table))
	for k, v := range table {
		t[normalizeClassroom(k)] = v
	}
	return &StaticDistanceProvider{table: t}
}

// Distance 查询教室距离
func (p *StaticDistanceProvider) Distance(classroom string) int {
	if classroom == "" {
		return 0
	}
	return p.table[normalizeClassroom(classroom)]
}

func normalizeClassroom(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
