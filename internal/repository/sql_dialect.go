package repository

import (
	"strings"

	"gorm.io/gorm"
)

// likeEscaper 转义用户输入里的通配符，配合 ESCAPE '\' 使用
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// dialectName 当前连接的方言，未知时按 sqlite
func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	if name := strings.ToLower(strings.TrimSpace(db.Dialector.Name())); name != "" {
		return name
	}
	return "sqlite"
}

// likeOperator postgres 下大小写不敏感
func likeOperator(dialect string) string {
	switch dialect {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// likeClause 生成 (a LIKE ? ESCAPE '\' OR b LIKE ? ...) 及对应参数，空列跳过
func likeClause(dialect, keyword string, columns []string) (string, []interface{}) {
	op := likeOperator(dialect)
	pattern := "%" + likeEscaper.Replace(keyword) + "%"
	var b strings.Builder
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		if len(args) > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString(column + " " + op + ` ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	if len(args) == 0 {
		return "", nil
	}
	return "(" + b.String() + ")", args
}

// applyLikeSearch 关键字非空时追加多列模糊匹配
func applyLikeSearch(query *gorm.DB, keyword string, columns ...string) *gorm.DB {
	keyword = strings.TrimSpace(keyword)
	if query == nil || keyword == "" {
		return query
	}
	clause, args := likeClause(dialectName(query), keyword, columns)
	if clause == "" {
		return query
	}
	return query.Where(clause, args...)
}
