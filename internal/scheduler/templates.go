package scheduler

import "text/template"

var runTemplate = template.Must(template.New("run.sh").Parse(`#!/usr/bin/env bash
# Generated by gram {{.Version}}. Runs one simulation: run.sh <simulation-path>
set -euo pipefail
if [ "$#" -ne 1 ]; then
    echo "usage: $0 <simulation-path>" >&2
    exit 2
fi
exec {{.Command}} "$1"
`))

var bashTemplate = template.Must(template.New("bash").Parse(`#!/usr/bin/env bash
# Generated by gram {{.Version}}. Runs every simulation in the manifest locally.
set -euo pipefail
MANIFEST={{.Manifest}}
RUN={{.Run}}
{{- if gt .Parallel 1}}
grep -v '^[[:space:]]*$' "$MANIFEST" | xargs -P {{.Parallel}} -n 1 "$RUN"
{{- else}}
while IFS= read -r SIMPATH || [ -n "$SIMPATH" ]; do
    [ -z "$SIMPATH" ] && continue
    "$RUN" "$SIMPATH"
done < "$MANIFEST"
{{- end}}
`))

var slurmTemplate = template.Must(template.New("slurm").Parse(`#!/usr/bin/env bash
# Generated by gram {{.Version}}. Submits one slurm job per simulation.
set -euo pipefail
MANIFEST={{.Manifest}}
RUN={{.Run}}
while IFS= read -r SIMPATH || [ -n "$SIMPATH" ]; do
    [ -z "$SIMPATH" ] && continue
    JOB=$(sbatch --parsable{{if .Flags}} {{.Flags}}{{end}} --job-name="gram_$(basename "$SIMPATH")" --wrap="\"$RUN\" \"$SIMPATH\"")
    echo "JobID = ${JOB} submitted on $(date)"
done < "$MANIFEST"
`))

var moabTemplate = template.Must(template.New("moab").Parse(`#!/usr/bin/env bash
# Generated by gram {{.Version}}. Submits one moab job per simulation.
MANIFEST={{.Manifest}}
RUN={{.Run}}
while IFS= read -r SIMPATH || [ -n "$SIMPATH" ]; do
    [ -z "$SIMPATH" ] && continue
    JOB=$(msub - <<EOJ
#!/bin/bash
{{- with .Moab}}
{{- if .Account}}
#MSUB -A {{.Account}}
{{- end}}
{{- if .Queue}}
#MSUB -q {{.Queue}}
{{- end}}
{{- if .Walltime}}
#MSUB -l walltime={{.Walltime}}
{{- end}}
{{- if .Email}}
#MSUB -m abe
#MSUB -M {{.Email}}
{{- end}}
#MSUB -j oe
#MSUB -N gram_$(basename "$SIMPATH")
#MSUB -l nodes={{.Nodes}}:ppn={{.PPN}}
{{- if .Memory}}
#MSUB -l mem={{.Memory}}
{{- end}}
{{- range .Modules}}
module load {{.}}
{{- end}}
{{- end}}
"$RUN" "$SIMPATH"
EOJ
)
    echo "JobID = ${JOB} submitted on $(date)"
done < "$MANIFEST"
exit
`))
