// Package prompts assembles the NL2SQL prompt: schema DDL, business rules,
// relevant table documentation, entity resolution context, conversation
// context, and worked examples. The documentation is data, embedded from
// YAML; the builder is the only code path that turns it into prompt text.
package prompts

// BusinessRules is the fixed business-context block included in every
// NL2SQL prompt. Status codes, workflow semantics, and absence reasons are
// things the schema alone does not say.
const BusinessRules = `Time Management System Business Rules:

1. TIME ENTRY WORKFLOW (time_entry.status_id):
   - 0 = NEW (draft, not yet submitted)
   - 1 = SENT_FOR_APPROVAL (awaiting manager review)
   - 2 = APPROVED (accepted by manager)
   - 3 = DISAPPROVED (rejected by manager)
   - 4 = POSTED (included in payroll)
   Hours reports should normally count POSTED entries (status_id = 4).

2. TIME CALCULATION:
   - When end_date_time minus begin_date_time is zero, the worked hours
     are in the unit column; otherwise compute hours from the interval.

3. ABSENCE REASONS (absence.absence_reason):
   - PI = Personal time off
   - SICK = Sick leave
   - VACATION = Vacation time
   - Other reason codes exist in the data.

4. ACTIVITY TYPES (activity table):
   - type categorizes the work (REGULAR, OVERTIME, DOUBLE-TIME, etc.)
   - active is a 'true'/'false' string marking availability
   - rate_of_pay drives compensation calculations
   - user_activities links users to the activities they may log

5. USER MANAGEMENT:
   - user.enabled is a 'true'/'false' string for account status
   - user_manager maps employees to the manager who approves their time
   - user_locations and user_role scope what a user can see and do

6. CALCULATION SYSTEM:
   - calculation_rate holds pay rate configurations and multipliers
   - salary_guide provides standard schedules per job classification

7. FAVORITES:
   - favorite, favorite_entry, and favorite_days store reusable time
     entry templates and their recurrence days.

8. POSTING PERIODS:
   - posting_date defines payroll periods; cut_off_date is the submission
     deadline and active marks the current period.`
