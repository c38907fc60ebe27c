/*
 * @module service/analytics/ranking
 * @description 操作员达成率排名：按(类别,操作员,参数)分组汇聚小时检查结果，分类别取前N名
 * @architecture 纯函数计算核心 - 分组汇聚 + 排序
 * @documentReference DESIGN.md
 * @stateFlow 小时读数 -> 分组计数 -> 操作员汇总 -> 按类别分区 -> 排序截断 -> 排名
 * @rules 达标口径为满足任意已定义范围；无检查记录的操作员不参与排名；并列按检查数、姓名决定先后
 * @dependencies plantops-service/service/models
 * @refs range_resolver.go
 */

package analytics

import (
	"math"
	"sort"
	"strings"

	"plantops-service/service/models"
)

// DefaultTopN 每个类别默认保留的名次数
const DefaultTopN = 4

// RankingOptions 排名选项
type RankingOptions struct {
	TopN int `json:"top_n"`
}

// ParameterAchievement 操作员在单个参数上的达成情况
type ParameterAchievement struct {
	ParameterID   string  `json:"parameter_id"`
	ParameterName string  `json:"parameter_name"`
	Checks        int     `json:"checks"`
	InRange       int     `json:"in_range"`
	Percentage    float64 `json:"percentage"`
	Bounds        Bounds  `json:"bounds"`
}

// RankingEntry 排行榜条目
type RankingEntry struct {
	Rank         int                    `json:"rank"`
	OperatorID   string                 `json:"operator_id,omitempty"`
	OperatorName string                 `json:"operator_name"`
	Role         string                 `json:"role,omitempty"`
	Active       bool                   `json:"active"`
	Checks       int                    `json:"checks"`
	InRange      int                    `json:"in_range"`
	Percentage   float64                `json:"percentage"`
	Parameters   []ParameterAchievement `json:"parameters"`
}

// CategoryRanking 类别排行榜，Candidates 为截断前参与排名的人数
type CategoryRanking struct {
	Category   string         `json:"category"`
	Candidates int            `json:"candidates"`
	Entries    []RankingEntry `json:"entries"`
}

type groupKey struct {
	category  string
	operator  string
	parameter string
}

type operatorKey struct {
	category string
	operator string
}

type checkTally struct {
	checks  int
	inRange int
}

// tallyChecks 第一步：按(类别,操作员,参数)分组计数
func tallyChecks(readings []models.HourlyReading, parameters []models.Parameter, index map[string]int) (map[groupKey]*checkTally, []groupKey) {
	groups := make(map[groupKey]*checkTally)
	keys := make([]groupKey, 0)
	for i := range readings {
		r := &readings[i]
		pos, ok := index[r.ParameterID]
		if !ok {
			continue
		}
		operator := strings.TrimSpace(r.OperatorName)
		if operator == "" {
			continue
		}
		p := &parameters[pos]
		key := groupKey{category: p.Category, operator: operator, parameter: p.ID}
		t, exists := groups[key]
		if !exists {
			t = &checkTally{}
			groups[key] = t
			keys = append(keys, key)
		}
		for _, v := range r.Hours {
			if v == nil || !isFinite(*v) {
				continue
			}
			t.checks++
			if InAnyRange(p, *v) {
				t.inRange++
			}
		}
	}
	return groups, keys
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

func percentage(inRange, checks int) float64 {
	if checks == 0 {
		return 0
	}
	return roundOneDecimal(float64(inRange) / float64(checks) * 100)
}

// RankOperators 计算各类别操作员达成率排行榜
// operators 仅用于补充操作员ID/角色/状态，不会引入没有检查记录的操作员
func RankOperators(readings []models.HourlyReading, parameters []models.Parameter, operators []models.Operator, opts RankingOptions) []CategoryRanking {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	index := parameterIndex(parameters)
	groups, keys := tallyChecks(readings, parameters, index)

	// 第二步：按(类别,操作员)汇总参数分组
	entries := make(map[operatorKey]*RankingEntry)
	entryOrder := make([]operatorKey, 0)
	for _, key := range keys {
		t := groups[key]
		ek := operatorKey{category: key.category, operator: key.operator}
		entry, exists := entries[ek]
		if !exists {
			entry = &RankingEntry{OperatorName: key.operator, Parameters: []ParameterAchievement{}}
			entries[ek] = entry
			entryOrder = append(entryOrder, ek)
		}
		p := &parameters[index[key.parameter]]
		entry.Checks += t.checks
		entry.InRange += t.inRange
		entry.Parameters = append(entry.Parameters, ParameterAchievement{
			ParameterID:   p.ID,
			ParameterName: p.Name,
			Checks:        t.checks,
			InRange:       t.inRange,
			Percentage:    percentage(t.inRange, t.checks),
			Bounds:        ResolveRange(p, MaterialGeneral),
		})
	}

	directory := make(map[string]models.Operator, len(operators))
	for _, o := range operators {
		directory[strings.TrimSpace(o.Name)] = o
	}

	// 第三步：按类别分区，剔除无检查记录的操作员
	byCategory := make(map[string][]RankingEntry)
	for _, ek := range entryOrder {
		entry := entries[ek]
		if entry.Checks == 0 {
			continue
		}
		entry.Percentage = percentage(entry.InRange, entry.Checks)
		if o, found := directory[entry.OperatorName]; found {
			entry.OperatorID = o.ID
			entry.Role = o.Role
			entry.Active = o.Active
		}
		sort.SliceStable(entry.Parameters, func(i, j int) bool {
			return index[entry.Parameters[i].ParameterID] < index[entry.Parameters[j].ParameterID]
		})
		byCategory[ek.category] = append(byCategory[ek.category], *entry)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	// 第四步：类别内排序、截断、编号
	rankings := make([]CategoryRanking, 0, len(categories))
	for _, category := range categories {
		list := byCategory[category]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Percentage != list[j].Percentage {
				return list[i].Percentage > list[j].Percentage
			}
			if list[i].Checks != list[j].Checks {
				return list[i].Checks > list[j].Checks
			}
			return list[i].OperatorName < list[j].OperatorName
		})

		candidates := len(list)
		if len(list) > topN {
			list = list[:topN]
		}
		for i := range list {
			list[i].Rank = i + 1
		}
		rankings = append(rankings, CategoryRanking{
			Category:   category,
			Candidates: candidates,
			Entries:    list,
		})
	}
	return rankings
}
