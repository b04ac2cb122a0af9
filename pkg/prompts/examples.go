package prompts

import (
	"fmt"
	"strings"
)

// SQLExample is one worked question/query pair included in the NL2SQL
// prompt. Examples teach the model the schema's join paths and the
// business rules (status codes, the zero-interval time calculation)
// better than prose does.
type SQLExample struct {
	Question    string
	SQL         string
	Explanation string
}

// SQLExamples are the worked examples shipped with the prompt, covering
// joins, the approval workflow, and the time calculation rule.
var SQLExamples = []SQLExample{
	{
		Question:    "List all the 21st century activity codes",
		SQL:         `SELECT code, description FROM activity WHERE LOWER(description) LIKE '%21st century%'`,
		Explanation: "Lists activity codes and descriptions matching a phrase",
	},
	{
		Question: "Which location does Rosalinda Rodriguez work at?",
		SQL: `SELECT l.code, l.name
FROM employee e
JOIN location l ON e.location_id = l.id
WHERE LOWER(e.first_name) LIKE LOWER('%Rosalinda%')
  AND LOWER(e.last_name) LIKE LOWER('%Rodriguez%')`,
		Explanation: "Finds an employee's location using case-insensitive name matching",
	},
	{
		Question: "Which locations have the most time entries?",
		SQL: `SELECT l.name, l.code, COUNT(te.id) AS time_entry_count
FROM location l
JOIN time_entry te ON l.id = te.location_id
GROUP BY l.id, l.name, l.code
ORDER BY time_entry_count DESC`,
		Explanation: "Orders locations by number of recorded time entries",
	},
	{
		Question: "What are the most used activity codes?",
		SQL: `SELECT a.code, a.description, COUNT(te.id) AS usage_count
FROM activity a
JOIN time_entry te ON a.id = te.activity_id
WHERE a.active = 'true'
GROUP BY a.id, a.code, a.description
ORDER BY usage_count DESC`,
		Explanation: "Lists active activity codes by frequency of use in time entries",
	},
	{
		Question: "Show me employees who worked overtime last month",
		SQL: `SELECT DISTINCT e.first_name, e.last_name, l.name AS location
FROM employee e
JOIN time_entry te ON e.id = te.employee_id
JOIN activity a ON te.activity_id = a.id
JOIN location l ON e.location_id = l.id
WHERE a.type IN ('OVERTIME', 'DOUBLE-TIME')
  AND te.begin_date_time >= CURRENT_DATE - INTERVAL '1 month'
  AND te.status_id = 4
ORDER BY e.last_name, e.first_name`,
		Explanation: "Posted overtime work is identified through the activity type",
	},
	{
		Question: "Show me pending time entries for approval for location 061",
		SQL: `SELECT e.first_name, e.last_name, te.begin_date_time, te.end_date_time,
       te.unit AS hours, a.description AS activity
FROM time_entry te
JOIN employee e ON te.employee_id = e.id
JOIN activity a ON te.activity_id = a.id
JOIN location l ON l.id = te.location_id
WHERE te.status_id = 1
  AND l.code = '061'
ORDER BY te.begin_date_time DESC`,
		Explanation: "Status 1 means sent for approval; the location is filtered by its code",
	},
	{
		Question: "What is the current payroll period?",
		SQL: `SELECT posting_date, cut_off_date
FROM posting_date
WHERE active = 'true'
ORDER BY posting_date DESC
LIMIT 1`,
		Explanation: "The active payroll period with its posting and cut-off dates",
	},
	{
		Question: "How many hours did Rosalinda Rodriguez work in total?",
		SQL: `SELECT SUM(
  CASE
    WHEN te.end_date_time = te.begin_date_time THEN te.unit
    ELSE ROUND(EXTRACT(EPOCH FROM (te.end_date_time - te.begin_date_time)) / 3600.0, 2)
  END
) AS total_hours
FROM time_entry te
JOIN employee e ON te.employee_id = e.id
WHERE LOWER(e.first_name) LIKE '%rosalinda%'
  AND LOWER(e.last_name) LIKE '%rodriguez%'
  AND te.status_id = 4`,
		Explanation: "Applies the zero-interval rule: use unit when begin and end are equal, otherwise the interval",
	},
	{
		Question: "Show me the top 5 employees by hours worked",
		SQL: `SELECT e.first_name, e.last_name,
       SUM(
         CASE
           WHEN te.end_date_time = te.begin_date_time THEN te.unit
           ELSE ROUND(EXTRACT(EPOCH FROM (te.end_date_time - te.begin_date_time)) / 3600.0, 2)
         END
       ) AS total_hours
FROM employee e
JOIN time_entry te ON te.employee_id = e.id
WHERE te.status_id = 4
GROUP BY e.id, e.first_name, e.last_name
ORDER BY total_hours DESC
LIMIT 5`,
		Explanation: "Ranks employees by total posted hours using the time calculation rule",
	},
}

// renderExamples formats the worked examples for the prompt.
func renderExamples() string {
	var b strings.Builder
	for _, ex := range SQLExamples {
		fmt.Fprintf(&b, "Q: %s\nSQL:\n%s\n-- %s\n\n", ex.Question, ex.SQL, ex.Explanation)
	}
	return strings.TrimRight(b.String(), "\n")
}
