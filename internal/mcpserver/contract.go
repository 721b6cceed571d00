package mcpserver

// StagesContract describes the pipeline stages and how jobs move between
// them, for LLM consumers of the board tools.
const StagesContract = `# jobdeck Stages

Every job sits in exactly one stage. Stages, in board order:

| Stage | Meaning |
|---|---|
| NEW | Found, not yet applied |
| CV_SENT | Application sent |
| FOLLOWED_UP | Followed up after applying |
| INTERVIEW | Interview scheduled or done |
| REFUSAL | Rejected |
| OFFER | Offer received |
| ARCHIVE | No longer tracked |

## Rules

1. Stage names are matched case-insensitively; always send the upper-case form.
2. ` + "`" + `move_job` + "`" + ` puts the job at the top of the target stage. Moving a job to
   the stage it is already in does nothing.
3. ` + "`" + `create_job` + "`" + ` requires a non-blank title. New jobs start in NEW unless a
   stage is given. Their ids start with ` + "`" + `self-` + "`" + ` and are derived from
   title, company and location, so creating the same job twice is refused.
4. Jobs loaded from the spreadsheet keep their ids across reloads. Only
   ` + "`" + `self-` + "`" + ` jobs can be deleted.
5. Dates use day-first ` + "`" + `D.M.YYYY` + "`" + ` (also ` + "`" + `-` + "`" + ` or ` + "`" + `/` + "`" + ` separators).
6. Writes reach the spreadsheet in the background. Call ` + "`" + `reload_board` + "`" + ` to
   re-read it.
`
