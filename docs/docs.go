// Package docs 注册 Swagger 文档，由 /swagger 路由读取
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "检查服务健康状态",
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.HealthResponse"}}}
            }
        },
        "/ready": {
            "get": {
                "description": "检查数据源是否可用",
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "就绪检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/controllers.HealthResponse"}}
                }
            }
        },
        "/analytics/compliance": {
            "post": {
                "description": "按物料上下文计算每日合规百分比、月度平均与日/月 QAF",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["分析计算"],
                "summary": "计算合规表",
                "parameters": [{"description": "参数与小时读数", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/analytics/statistics": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["分析计算"],
                "summary": "计算统计摘要",
                "parameters": [{"description": "序列", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.SeriesRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/analytics/anomalies": {
            "post": {
                "description": "3σ 离群点检测",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["分析计算"],
                "summary": "异常检测",
                "parameters": [{"description": "序列", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.SeriesRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/analytics/correlations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["分析计算"],
                "summary": "相关性矩阵",
                "parameters": [{"description": "参数日序列", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/analytics/forecast": {
            "post": {
                "description": "线性趋势外推7天并评估越界风险",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["分析计算"],
                "summary": "趋势预测",
                "parameters": [{"description": "序列与目标范围", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/analytics/rankings": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["分析计算"],
                "summary": "操作员达成率排名",
                "parameters": [{"description": "读数、参数与操作员", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/dashboard/compliance": {
            "get": {
                "description": "按类别与单元返回当月每日合规百分比、月度平均与 QAF",
                "produces": ["application/json"],
                "tags": ["看板"],
                "summary": "月度合规看板",
                "parameters": [
                    {"type": "string", "description": "月份 YYYY-MM", "name": "month", "in": "query", "required": true},
                    {"type": "string", "description": "类别", "name": "category", "in": "query", "required": true},
                    {"type": "string", "description": "工厂单元", "name": "unit", "in": "query", "required": true},
                    {"type": "string", "description": "物料类型 OPC/PCC", "name": "material", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/dashboard/analysis": {
            "get": {
                "description": "每个参数的统计摘要、异常点、趋势预测以及参数间相关性",
                "produces": ["application/json"],
                "tags": ["看板"],
                "summary": "参数分析看板",
                "parameters": [
                    {"type": "string", "description": "月份 YYYY-MM", "name": "month", "in": "query", "required": true},
                    {"type": "string", "description": "类别", "name": "category", "in": "query", "required": true},
                    {"type": "string", "description": "工厂单元", "name": "unit", "in": "query", "required": true},
                    {"type": "string", "description": "物料类型 OPC/PCC", "name": "material", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/dashboard/rankings": {
            "get": {
                "description": "按类别统计操作员达成率，类别为空时返回全部类别",
                "produces": ["application/json"],
                "tags": ["看板"],
                "summary": "操作员排行榜",
                "parameters": [
                    {"type": "string", "description": "月份 YYYY-MM", "name": "month", "in": "query", "required": true},
                    {"type": "string", "description": "类别", "name": "category", "in": "query"},
                    {"type": "integer", "description": "名次数", "name": "top_n", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        },
        "/dashboard/daily-report": {
            "get": {
                "description": "指定日期的 QAF、月初至当日 QAF 与参数分析",
                "produces": ["application/json"],
                "tags": ["看板"],
                "summary": "单日报告",
                "parameters": [
                    {"type": "string", "description": "日期 YYYY-MM-DD", "name": "date", "in": "query", "required": true},
                    {"type": "string", "description": "类别", "name": "category", "in": "query", "required": true},
                    {"type": "string", "description": "工厂单元", "name": "unit", "in": "query", "required": true},
                    {"type": "string", "description": "物料类型 OPC/PCC", "name": "material", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/controllers.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "controllers.APIResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "integer", "example": 0},
                "msg": {"type": "string", "example": "操作成功"},
                "data": {}
            }
        },
        "controllers.SeriesRequest": {
            "type": "object",
            "properties": {
                "series": {"type": "array", "items": {"type": "number"}}
            }
        },
        "controllers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "timestamp": {"type": "string", "example": "2024-01-01T00:00:00Z"},
                "version": {"type": "string", "example": "1.0.0"},
                "service": {"type": "string", "example": "plantops-service"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo 文档元信息
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "工厂运行合规与排名分析服务 API",
	Description:      "提供参数合规计算、QAF、统计分析、异常检测、趋势预测、相关性与操作员排名",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
