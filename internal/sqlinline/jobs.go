package sqlinline

const QInsertBatchJob = `--sql 7c1f2a7e-93d4-4a8a-9a6f-2f1f6c1b8a01
insert into batch_jobs(
  id, user_id, campaign_id, segment_id, prompt_template_id, creative_template_id,
  content_kind, item_count, parameters, status, total_items, completed_items,
  failed_items, creative_ids, created_at
)
values ($1::uuid, $2::text, $3::text, nullif($4, ''), nullif($5, ''), nullif($6, ''),
        $7::text, $8::int, coalesce($9::jsonb, '{}'::jsonb), 'pending', $8::int, 0, 0,
        '{}'::text[], now());
`

const QSelectBatchJob = `--sql 0b4c5a2d-6f3e-47f1-b1a9-8c9d0e1f2a02
select id, user_id, campaign_id, coalesce(segment_id, ''), coalesce(prompt_template_id, ''),
       coalesce(creative_template_id, ''), content_kind, item_count, parameters, status,
       total_items, completed_items, failed_items, creative_ids,
       coalesce(error_message, ''), created_at, started_at, completed_at
from batch_jobs
where id = $1::uuid;
`

const QListBatchJobs = `--sql 3e8d9c1b-2a4f-45e6-8b7c-6d5e4f3a2b03
select id, user_id, campaign_id, coalesce(segment_id, ''), coalesce(prompt_template_id, ''),
       coalesce(creative_template_id, ''), content_kind, item_count, parameters, status,
       total_items, completed_items, failed_items, creative_ids,
       coalesce(error_message, ''), created_at, started_at, completed_at
from batch_jobs
where ($1::text = '' or campaign_id = $1::text)
  and ($2::text = '' or status = $2::text)
order by created_at desc
offset $3 limit $4;
`

const QMarkJobProcessing = `--sql 9a7b6c5d-4e3f-42a1-b0c9-d8e7f6a5b404
update batch_jobs
set status = 'processing', started_at = now(), total_items = $2::int
where id = $1::uuid and status = 'pending'
returning id;
`

const QRecordItemSuccess = `--sql 5f4e3d2c-1b0a-49f8-87e6-d5c4b3a2f105
update batch_jobs
set completed_items = completed_items + 1,
    creative_ids = array_append(creative_ids, $2::text)
where id = $1::uuid;
`

const QRecordItemFailure = `--sql 8c7d6e5f-4a3b-42c1-90d8-e7f6a5b4c306
update batch_jobs
set failed_items = failed_items + 1
where id = $1::uuid;
`

const QMarkJobTerminal = `--sql 2a1b0c9d-8e7f-46a5-b4c3-d2e1f0a9b807
update batch_jobs
set status = $2::text,
    error_message = nullif($3, ''),
    completed_at = now()
where id = $1::uuid and status in ('pending', 'processing')
returning id;
`

const QCancelBatchJob = `--sql 6e5f4a3b-2c1d-40e9-8f7a-b6c5d4e3f208
update batch_jobs
set status = 'failed', error_message = $2::text, completed_at = now()
where id = $1::uuid and status in ('pending', 'processing')
returning id;
`

const QClaimPendingJob = `--sql d4c3b2a1-f0e9-48d7-a6b5-c4d3e2f1a009
select id
from batch_jobs
where status = 'pending'
order by created_at asc
limit 1;
`

const QCampaignBatchStats = `--sql b2a1f0e9-d8c7-46b5-a4d3-e2f1a0b9c810
select count(*),
       count(*) filter (where status = 'completed'),
       count(*) filter (where status = 'failed'),
       count(*) filter (where status = 'processing'),
       count(*) filter (where status = 'pending'),
       coalesce(sum(completed_items), 0),
       coalesce(sum(failed_items), 0)
from batch_jobs
where campaign_id = $1::text;
`
